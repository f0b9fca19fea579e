package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mnemo/pkg/metrics"
)

func scrape(m *metrics.Manager) (int, string) {
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Code, rec.Body.String()
}

var _ = Describe("Manager", func() {
	It("exposes recorded memory metrics", func() {
		m := metrics.NewManager(metrics.DefaultConfig())
		Expect(m.Enabled()).To(BeTrue())

		m.RecordMemorize(metrics.OutcomeStored)
		m.RecordItemWritten(false)
		m.RecordItemWritten(true)
		m.RecordItemWritten(true)
		m.RecordRetrieve("embedding", 20*time.Millisecond)
		m.RecordDegraded("category_rank")

		code, body := scrape(m)
		Expect(code).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring(`mnemo_memorize_total{outcome="stored"} 1`))
		Expect(body).To(ContainSubstring(`mnemo_items_written_total{kind="created"} 1`))
		Expect(body).To(ContainSubstring(`mnemo_items_written_total{kind="reinforced"} 2`))
		Expect(body).To(ContainSubstring(`mnemo_retrieve_total{method="embedding"} 1`))
		Expect(body).To(ContainSubstring(`mnemo_retrieve_duration_seconds_count{method="embedding"} 1`))
		Expect(body).To(ContainSubstring(`mnemo_degraded_stage_total{stage="category_rank"} 1`))
	})

	It("is a no-op when disabled", func() {
		m := metrics.NewManager(metrics.Config{Enabled: false})
		Expect(m.Enabled()).To(BeFalse())

		Expect(func() {
			m.RecordMemorize(metrics.OutcomeEmpty)
			m.RecordItemWritten(true)
			m.RecordRetrieve("llm", time.Second)
			m.RecordDegraded("x")
		}).NotTo(Panic())

		code, _ := scrape(m)
		Expect(code).To(Equal(http.StatusNotFound))
	})

	It("tolerates a nil manager", func() {
		var m *metrics.Manager
		Expect(m.Enabled()).To(BeFalse())
		Expect(func() { m.RecordMemorize(metrics.OutcomeFailed) }).NotTo(Panic())
	})
})
