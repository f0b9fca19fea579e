package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mnemo/pkg/dotdir"
)

var _ = Describe("dotdir", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		var err error
		// Resolve symlinks so paths match filepath.Abs results
		// (e.g. on macOS /var -> /private/var).
		tmpDir, err = filepath.EvalSymlinks(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())

		m = dotdir.NewManager()
	})

	Describe("Target", func() {
		It("creates the directory if it doesn't exist", func() {
			dir := filepath.Join(tmpDir, "newdir")
			result, err := m.Target(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(dir))

			info, err := os.Stat(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})

		It("returns the override dir even when a local .mnemo dir exists", func() {
			Expect(os.Mkdir(filepath.Join(tmpDir, ".mnemo"), 0o755)).To(Succeed())
			GinkgoT().Chdir(tmpDir)

			overrideDir := filepath.Join(tmpDir, "override")
			result, err := m.Target(overrideDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(overrideDir))
		})

		It("returns the local .mnemo dir when it exists and no override is provided", func() {
			local := filepath.Join(tmpDir, ".mnemo")
			Expect(os.Mkdir(local, 0o755)).To(Succeed())
			GinkgoT().Chdir(tmpDir)

			result, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(local))
		})

		It("falls back to the home directory", func() {
			emptyDir := filepath.Join(tmpDir, "empty")
			Expect(os.Mkdir(emptyDir, 0o755)).To(Succeed())
			GinkgoT().Chdir(emptyDir)
			GinkgoT().Setenv("HOME", emptyDir)

			result, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(filepath.Join(emptyDir, ".mnemo")))
		})
	})

	Describe("Agent", func() {
		It("creates the agent directory and derives its paths", func() {
			agent, err := m.Agent(tmpDir, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(agent.Path).To(Equal(filepath.Join(tmpDir, "agents", "alice")))
			Expect(agent.DBPath()).To(Equal(filepath.Join(tmpDir, "agents", "alice", "memory.db")))
			Expect(agent.ExportPath()).To(Equal(filepath.Join(tmpDir, "agents", "alice", "outputs", "memory_export.md")))

			info, err := os.Stat(agent.Path)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})

		DescribeTable("rejects unusable ids",
			func(id string) {
				_, err := m.Agent(tmpDir, id)
				Expect(err).To(MatchError(dotdir.ErrInvalidAgentID))
			},
			Entry("empty", ""),
			Entry("blank", "   "),
			Entry("dot", "."),
			Entry("parent", ".."),
			Entry("slash", "a/b"),
			Entry("backslash", `a\b`),
		)

		It("lists agents", func() {
			ids, err := m.Agents(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(BeEmpty())

			_, err = m.Agent(tmpDir, "a")
			Expect(err).NotTo(HaveOccurred())
			_, err = m.Agent(tmpDir, "b")
			Expect(err).NotTo(HaveOccurred())

			ids, err = m.Agents(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(ConsistOf("a", "b"))
		})
	})

	Describe("ReadLegacy", func() {
		It("reads and trims a legacy file", func() {
			agent, err := m.Agent(tmpDir, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(os.WriteFile(filepath.Join(agent.Path, "SOUL.md"), []byte("\n# Soul\ncalm\n\n"), 0o644)).To(Succeed())

			content, ok, err := agent.ReadLegacy("SOUL.md")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(content).To(Equal("# Soul\ncalm"))
		})

		It("reports a missing file", func() {
			agent, err := m.Agent(tmpDir, "alice")
			Expect(err).NotTo(HaveOccurred())

			_, ok, err := agent.ReadLegacy("USER.md")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})
	})
})
