package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"unsafe"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mnemo/pkg/categories"
	"github.com/papercomputeco/mnemo/pkg/dotdir"
	"github.com/papercomputeco/mnemo/pkg/engine"
	"github.com/papercomputeco/mnemo/pkg/storage/sqlite"
)

var _ = Describe("Engine", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("requires a root directory", func() {
		_, err := engine.New(engine.Options{})
		Expect(err).To(HaveOccurred())
	})

	It("rejects agent ids that escape the agents directory", func() {
		h := newHarness()
		_, err := h.engine.Store(ctx, "../evil")
		Expect(err).To(MatchError(dotdir.ErrInvalidAgentID))
	})

	Describe("bootstrap", func() {
		It("creates every category of the fixed set with bundled seeds", func() {
			h := newHarness()
			store, err := h.engine.Store(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())

			cats, err := store.Categories().List(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(cats).To(HaveLen(len(categories.All)))

			soul, err := store.Categories().GetByName(ctx, "soul")
			Expect(err).NotTo(HaveOccurred())
			Expect(soul.Summary).To(Equal(mustLookup("soul").Seed()))
			Expect(soul.Summary).NotTo(BeEmpty())

			habits, err := store.Categories().GetByName(ctx, "habits")
			Expect(err).NotTo(HaveOccurred())
			Expect(habits.Summary).To(BeEmpty())
			Expect(habits.Description).To(Equal(mustLookup("habits").Description))
		})

		It("prefers a legacy file over the bundled seed", func() {
			h := newHarness()
			dir := filepath.Join(h.root, "agents", "alice")
			Expect(os.MkdirAll(dir, 0o755)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(dir, "USER.md"), []byte("  The user is Alice.\n"), 0o644)).To(Succeed())

			store, err := h.engine.Store(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())

			user, err := store.Categories().GetByName(ctx, "user")
			Expect(err).NotTo(HaveOccurred())
			Expect(user.Summary).To(Equal("The user is Alice."))
		})

		It("migrates a legacy file into an existing empty category once", func() {
			h := newHarness()
			dir := filepath.Join(h.root, "agents", "alice")
			Expect(os.MkdirAll(dir, 0o755)).To(Succeed())

			pre, err := sqlite.NewSQLiteStore(sqlite.Config{DBPath: filepath.Join(dir, "memory.db")}, nil)
			Expect(err).NotTo(HaveOccurred())
			_, err = pre.Categories().GetOrCreate(ctx, "soul", "persona and identity", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(pre.Close()).To(Succeed())

			Expect(os.WriteFile(filepath.Join(dir, "SOUL.md"), []byte("I am a careful helper."), 0o644)).To(Succeed())

			store, err := h.engine.Store(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())

			soul, err := store.Categories().GetByName(ctx, "soul")
			Expect(err).NotTo(HaveOccurred())
			Expect(soul.Summary).To(Equal("I am a careful helper."))
		})

		It("migrates a legacy file into a category whose summary is blank", func() {
			h := newHarness()
			dir := filepath.Join(h.root, "agents", "alice")
			Expect(os.MkdirAll(dir, 0o755)).To(Succeed())

			pre, err := sqlite.NewSQLiteStore(sqlite.Config{DBPath: filepath.Join(dir, "memory.db")}, nil)
			Expect(err).NotTo(HaveOccurred())
			blank := "  \n\t"
			_, err = pre.Categories().GetOrCreate(ctx, "tools", "tool usage notes", &blank)
			Expect(err).NotTo(HaveOccurred())
			Expect(pre.Close()).To(Succeed())

			Expect(os.WriteFile(filepath.Join(dir, "TOOLS.md"), []byte("Prefer ripgrep."), 0o644)).To(Succeed())

			store, err := h.engine.Store(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())

			tools, err := store.Categories().GetByName(ctx, "tools")
			Expect(err).NotTo(HaveOccurred())
			Expect(tools.Summary).To(Equal("Prefer ripgrep."))
		})

		It("skips an unreadable legacy file and keeps bootstrapping", func() {
			h := newHarness()
			dir := filepath.Join(h.root, "agents", "alice")
			Expect(os.MkdirAll(filepath.Join(dir, "USER.md"), 0o755)).To(Succeed())

			store, err := h.engine.Store(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())

			cats, err := store.Categories().List(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(cats).To(HaveLen(len(categories.All)))

			user, err := store.Categories().GetByName(ctx, "user")
			Expect(err).NotTo(HaveOccurred())
			Expect(user.Summary).To(Equal(mustLookup("user").Seed()))
		})
	})

	It("keeps one database file per agent", func() {
		h := newHarness()
		_, err := h.engine.Store(ctx, "alice")
		Expect(err).NotTo(HaveOccurred())
		_, err = h.engine.Store(ctx, "bob")
		Expect(err).NotTo(HaveOccurred())

		Expect(filepath.Join(h.root, "agents", "alice", "memory.db")).To(BeAnExistingFile())
		Expect(filepath.Join(h.root, "agents", "bob", "memory.db")).To(BeAnExistingFile())

		agents, err := h.engine.Agents()
		Expect(err).NotTo(HaveOccurred())
		Expect(agents).To(ConsistOf("alice", "bob"))
	})

	It("does not key stores by the caller's buffer", func() {
		h := newHarness()
		buf := []byte("alice")
		id := unsafe.String(&buf[0], len(buf))

		alice, err := h.engine.Store(ctx, id)
		Expect(err).NotTo(HaveOccurred())

		copy(buf, "bobby")
		bobby, err := h.engine.Store(ctx, "bobby")
		Expect(err).NotTo(HaveOccurred())
		Expect(bobby).NotTo(BeIdenticalTo(alice))

		again, err := h.engine.Store(ctx, "alice")
		Expect(err).NotTo(HaveOccurred())
		Expect(again).To(BeIdenticalTo(alice))
	})

	It("returns the same store for repeated opens", func() {
		h := newHarness()
		a, err := h.engine.Store(ctx, "alice")
		Expect(err).NotTo(HaveOccurred())
		b, err := h.engine.Store(ctx, "alice")
		Expect(err).NotTo(HaveOccurred())
		Expect(a).To(BeIdenticalTo(b))
	})
})

func mustLookup(name string) categories.Category {
	c, ok := categories.Lookup(name)
	Expect(ok).To(BeTrue())
	return c
}
