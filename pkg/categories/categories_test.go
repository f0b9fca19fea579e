package categories_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mnemo/pkg/categories"
)

var _ = Describe("Categories", func() {
	It("has fourteen uniquely named categories", func() {
		names := categories.Names()
		Expect(names).To(HaveLen(14))
		Expect(names[:4]).To(Equal([]string{"soul", "user", "agents", "tools"}))

		seen := map[string]bool{}
		for _, n := range names {
			Expect(seen).NotTo(HaveKey(n))
			seen[n] = true
		}
	})

	It("bundles seeds only for the persona categories", func() {
		for _, c := range categories.All {
			if c.LegacyFile != "" {
				Expect(c.Seed()).NotTo(BeEmpty(), c.Name)
			} else {
				Expect(c.Seed()).To(BeEmpty(), c.Name)
			}
		}
	})

	It("looks categories up by name", func() {
		c, ok := categories.Lookup("habits")
		Expect(ok).To(BeTrue())
		Expect(c.Description).To(Equal("habits and routines"))

		_, ok = categories.Lookup("gossip")
		Expect(ok).To(BeFalse())
	})

	It("defaults to the user category", func() {
		_, ok := categories.Lookup(categories.Default)
		Expect(ok).To(BeTrue())
	})
})
