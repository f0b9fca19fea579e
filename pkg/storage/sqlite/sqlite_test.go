package sqlite_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mnemo/pkg/memory"
	"github.com/papercomputeco/mnemo/pkg/storage"
	"github.com/papercomputeco/mnemo/pkg/storage/sqlite"
	"github.com/papercomputeco/mnemo/pkg/vector"
)

var _ = Describe("SQLiteStore", func() {
	var (
		store *sqlite.SQLiteStore
		ctx   context.Context
		clock time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		clock = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

		var err error
		store, err = sqlite.NewSQLiteStore(sqlite.Config{
			DBPath: ":memory:",
			Now: func() time.Time {
				clock = clock.Add(time.Second)
				return clock
			},
		}, nil)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if store != nil {
			Expect(store.Close()).To(Succeed())
		}
	})

	Describe("NewSQLiteStore", func() {
		It("requires a database path", func() {
			_, err := sqlite.NewSQLiteStore(sqlite.Config{}, nil)
			Expect(err).To(MatchError(ContainSubstring("database path is required")))
		})

		It("creates the database file and reopens it with data intact", func() {
			dbPath := filepath.Join(GinkgoT().TempDir(), "memory.db")

			s, err := sqlite.NewSQLiteStore(sqlite.Config{DBPath: dbPath}, nil)
			Expect(err).NotTo(HaveOccurred())

			_, err = os.Stat(dbPath)
			Expect(err).NotTo(HaveOccurred())

			item, err := s.Items().Create(ctx, storage.ItemInput{Summary: "likes tea"})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Close()).To(Succeed())

			s, err = sqlite.NewSQLiteStore(sqlite.Config{DBPath: dbPath}, nil)
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			got, err := s.Items().Get(ctx, item.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).NotTo(BeNil())
			Expect(got.Summary).To(Equal("likes tea"))
		})
	})

	Describe("Resources", func() {
		It("creates and gets a resource", func() {
			caption := "hello there"
			res, err := store.Resources().Create(ctx, storage.ResourceInput{
				URL:       "conversation:in_memory",
				Modality:  memory.ModalityConversation,
				Caption:   &caption,
				Embedding: []float32{1, 0, 0},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.ID).NotTo(BeEmpty())

			got, err := store.Resources().Get(ctx, res.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.URL).To(Equal("conversation:in_memory"))
			Expect(*got.Caption).To(Equal("hello there"))
			Expect(got.Embedding).To(Equal([]float32{1, 0, 0}))
		})

		It("returns nil for an unknown id", func() {
			got, err := store.Resources().Get(ctx, "missing")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeNil())
		})

		It("updates the caption", func() {
			res, err := store.Resources().Create(ctx, storage.ResourceInput{URL: "doc:1", Modality: memory.ModalityDocument})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Caption).To(BeNil())

			caption := "a document"
			_, err = store.Resources().UpdateCaption(ctx, res.ID, &caption)
			Expect(err).NotTo(HaveOccurred())

			got, err := store.Resources().Get(ctx, res.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(*got.Caption).To(Equal("a document"))
		})

		It("reports an unknown id on caption update", func() {
			caption := "x"
			_, err := store.Resources().UpdateCaption(ctx, "missing", &caption)
			Expect(err).To(MatchError(storage.ErrNotFound{Kind: "resource", ID: "missing"}))
		})

		It("filters by modality", func() {
			_, err := store.Resources().Create(ctx, storage.ResourceInput{URL: "a", Modality: memory.ModalityConversation})
			Expect(err).NotTo(HaveOccurred())
			_, err = store.Resources().Create(ctx, storage.ResourceInput{URL: "b", Modality: memory.ModalityDocument})
			Expect(err).NotTo(HaveOccurred())

			all, err := store.Resources().List(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(2))

			docs, err := store.Resources().List(ctx, &storage.ResourceFilter{Modality: memory.ModalityDocument})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
		})
	})

	Describe("Items", func() {
		It("defaults the memory type to profile and derives the content hash", func() {
			item, err := store.Items().Create(ctx, storage.ItemInput{Summary: "  User likes coffee "})
			Expect(err).NotTo(HaveOccurred())
			Expect(item.MemoryType).To(Equal(memory.TypeProfile))
			Expect(item.Summary).To(Equal("User likes coffee"))
			Expect(item.Extra.ContentHash).To(Equal(memory.ContentHash("user likes coffee", memory.TypeProfile)))
			Expect(item.Extra.ReinforcementCount).To(Equal(1))
			Expect(item.Extra.LastReinforcedAt).NotTo(BeNil())
		})

		It("rejects an empty summary", func() {
			_, err := store.Items().Create(ctx, storage.ItemInput{Summary: "   "})
			Expect(err).To(MatchError(memory.ErrEmptySummary))
		})

		It("rejects an unknown memory type", func() {
			_, err := store.Items().Create(ctx, storage.ItemInput{Summary: "x", MemoryType: "gossip"})
			Expect(err).To(MatchError(memory.ErrInvalidMemoryType))
		})

		It("reinforces an item with the same normalized content", func() {
			first, reinforced, err := store.Items().CreateOrReinforce(ctx, storage.ItemInput{Summary: "User likes coffee"})
			Expect(err).NotTo(HaveOccurred())
			Expect(reinforced).To(BeFalse())

			second, reinforced, err := store.Items().CreateOrReinforce(ctx, storage.ItemInput{Summary: "user   LIKES coffee"})
			Expect(err).NotTo(HaveOccurred())
			Expect(reinforced).To(BeTrue())
			Expect(second.ID).To(Equal(first.ID))
			Expect(second.Summary).To(Equal("User likes coffee"))
			Expect(second.Extra.ReinforcementCount).To(Equal(2))
			Expect(second.Extra.LastReinforcedAt.After(*first.Extra.LastReinforcedAt)).To(BeTrue())

			got, err := store.Items().Get(ctx, first.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Extra.ReinforcementCount).To(Equal(2))

			all, err := store.Items().List(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(1))
		})

		It("keeps items of different types apart", func() {
			_, _, err := store.Items().CreateOrReinforce(ctx, storage.ItemInput{Summary: "runs daily", MemoryType: memory.TypeBehavior})
			Expect(err).NotTo(HaveOccurred())
			_, reinforced, err := store.Items().CreateOrReinforce(ctx, storage.ItemInput{Summary: "runs daily", MemoryType: memory.TypeEvent})
			Expect(err).NotTo(HaveOccurred())
			Expect(reinforced).To(BeFalse())

			all, err := store.Items().List(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(2))
		})

		It("filters by content hash", func() {
			item, err := store.Items().Create(ctx, storage.ItemInput{Summary: "alpha"})
			Expect(err).NotTo(HaveOccurred())
			_, err = store.Items().Create(ctx, storage.ItemInput{Summary: "beta"})
			Expect(err).NotTo(HaveOccurred())

			found, err := store.Items().List(ctx, &storage.ItemFilter{ContentHash: item.Extra.ContentHash})
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(HaveKey(item.ID))
			Expect(found).To(HaveLen(1))
		})

		It("returns copies that do not alias the cache", func() {
			item, err := store.Items().Create(ctx, storage.ItemInput{Summary: "gamma", Embedding: []float32{1, 2}})
			Expect(err).NotTo(HaveOccurred())

			got, err := store.Items().Get(ctx, item.ID)
			Expect(err).NotTo(HaveOccurred())
			got.Summary = "mutated"
			got.Embedding[0] = 42

			again, err := store.Items().Get(ctx, item.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(again.Summary).To(Equal("gamma"))
			Expect(again.Embedding).To(Equal([]float32{1, 2}))
		})

		Describe("VectorSearch", func() {
			var coffee, tea, code *memory.Item

			BeforeEach(func() {
				var err error
				coffee, err = store.Items().Create(ctx, storage.ItemInput{Summary: "likes coffee", Embedding: []float32{1, 0, 0}})
				Expect(err).NotTo(HaveOccurred())
				tea, err = store.Items().Create(ctx, storage.ItemInput{Summary: "likes tea", Embedding: []float32{0.8, 0.6, 0}})
				Expect(err).NotTo(HaveOccurred())
				code, err = store.Items().Create(ctx, storage.ItemInput{
					Summary:    "writes go",
					MemoryType: memory.TypeSkill,
					Embedding:  []float32{0, 0, 1},
				})
				Expect(err).NotTo(HaveOccurred())
			})

			It("ranks by cosine similarity", func() {
				hits, err := store.Items().VectorSearch(ctx, []float32{1, 0, 0}, 2, storage.SearchOptions{})
				Expect(err).NotTo(HaveOccurred())
				Expect(hits).To(HaveLen(2))
				Expect(hits[0].ID).To(Equal(coffee.ID))
				Expect(hits[0].Score).To(BeNumerically("~", 1.0, 1e-6))
				Expect(hits[1].ID).To(Equal(tea.ID))
				Expect(hits[1].Score).To(BeNumerically("~", 0.8, 1e-6))
			})

			It("applies the filter", func() {
				hits, err := store.Items().VectorSearch(ctx, []float32{1, 0, 0}, 5, storage.SearchOptions{
					Filter: &storage.ItemFilter{MemoryType: memory.TypeSkill},
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(hits).To(HaveLen(1))
				Expect(hits[0].ID).To(Equal(code.ID))
			})

			It("lets reinforcement lift an item under salience ranking", func() {
				for range 5 {
					_, _, err := store.Items().CreateOrReinforce(ctx, storage.ItemInput{Summary: "likes tea"})
					Expect(err).NotTo(HaveOccurred())
				}

				hits, err := store.Items().VectorSearch(ctx, []float32{1, 0, 0}, 2, storage.SearchOptions{
					Ranking: vector.RankingSalience,
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(hits).To(HaveLen(2))
				Expect(hits[0].ID).To(Equal(tea.ID))
			})

			It("breaks ties in creation order across sub-second timestamps", func() {
				base := time.Date(2025, 3, 2, 12, 0, 5, 0, time.UTC)
				stamps := []time.Time{
					base,
					base.Add(100 * time.Millisecond),
					base.Add(120 * time.Millisecond),
				}
				next := 0
				tied, err := sqlite.NewSQLiteStore(sqlite.Config{
					DBPath: ":memory:",
					Now: func() time.Time {
						t := stamps[min(next, len(stamps)-1)]
						next++
						return t
					},
				}, nil)
				Expect(err).NotTo(HaveOccurred())
				DeferCleanup(tied.Close)

				var ids []string
				for _, summary := range []string{"first", "second", "third"} {
					item, err := tied.Items().Create(ctx, storage.ItemInput{Summary: summary, Embedding: []float32{0, 1, 0}})
					Expect(err).NotTo(HaveOccurred())
					ids = append(ids, item.ID)
				}

				hits, err := tied.Items().VectorSearch(ctx, []float32{0, 1, 0}, 3, storage.SearchOptions{})
				Expect(err).NotTo(HaveOccurred())
				Expect(hits).To(HaveLen(3))
				Expect([]string{hits[0].ID, hits[1].ID, hits[2].ID}).To(Equal(ids))
			})

			It("returns nothing for k of zero", func() {
				hits, err := store.Items().VectorSearch(ctx, []float32{1, 0, 0}, 0, storage.SearchOptions{})
				Expect(err).NotTo(HaveOccurred())
				Expect(hits).To(BeEmpty())
			})
		})
	})

	Describe("Categories", func() {
		It("gets or creates a category by name", func() {
			summary := "# soul"
			cat, err := store.Categories().GetOrCreate(ctx, "soul", "persona", &summary)
			Expect(err).NotTo(HaveOccurred())
			Expect(cat.Name).To(Equal("soul"))
			Expect(cat.Summary).To(Equal("# soul"))

			again, err := store.Categories().GetOrCreate(ctx, "soul", "other", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(again.ID).To(Equal(cat.ID))
			Expect(again.Description).To(Equal("persona"))
			Expect(again.Summary).To(Equal("# soul"))

			all, err := store.Categories().List(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(1))
		})

		It("looks a category up by name", func() {
			cat, err := store.Categories().GetOrCreate(ctx, "habits", "", nil)
			Expect(err).NotTo(HaveOccurred())

			got, err := store.Categories().GetByName(ctx, "habits")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(cat.ID))

			missing, err := store.Categories().GetByName(ctx, "nope")
			Expect(err).NotTo(HaveOccurred())
			Expect(missing).To(BeNil())
		})

		It("updates summary and embedding", func() {
			cat, err := store.Categories().GetOrCreate(ctx, "goals", "goals", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(cat.Summary).To(BeEmpty())

			summary := "wants to learn go"
			updated, err := store.Categories().Update(ctx, cat.ID, storage.CategoryUpdate{
				Summary:   &summary,
				Embedding: []float32{0, 1},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Summary).To(Equal(summary))
			Expect(updated.Description).To(Equal("goals"))

			got, err := store.Categories().Get(ctx, cat.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Summary).To(Equal(summary))
			Expect(got.Embedding).To(Equal([]float32{0, 1}))
		})

		It("reports an unknown id on update", func() {
			summary := "x"
			_, err := store.Categories().Update(ctx, "missing", storage.CategoryUpdate{Summary: &summary})
			Expect(err).To(MatchError(storage.ErrNotFound{Kind: "category", ID: "missing"}))
		})
	})

	Describe("Relations", func() {
		var (
			item *memory.Item
			cat  *memory.Category
		)

		BeforeEach(func() {
			var err error
			item, err = store.Items().Create(ctx, storage.ItemInput{Summary: "likes coffee"})
			Expect(err).NotTo(HaveOccurred())
			cat, err = store.Categories().GetOrCreate(ctx, "preferences", "", nil)
			Expect(err).NotTo(HaveOccurred())
		})

		It("links idempotently", func() {
			first, err := store.Relations().Link(ctx, item.ID, cat.ID)
			Expect(err).NotTo(HaveOccurred())
			second, err := store.Relations().Link(ctx, item.ID, cat.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.ID).To(Equal(first.ID))

			all, err := store.Relations().List(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(1))
		})

		It("filters by category", func() {
			other, err := store.Categories().GetOrCreate(ctx, "habits", "", nil)
			Expect(err).NotTo(HaveOccurred())
			_, err = store.Relations().Link(ctx, item.ID, cat.ID)
			Expect(err).NotTo(HaveOccurred())
			_, err = store.Relations().Link(ctx, item.ID, other.ID)
			Expect(err).NotTo(HaveOccurred())

			links, err := store.Relations().List(ctx, &storage.RelationFilter{CategoryID: other.ID})
			Expect(err).NotTo(HaveOccurred())
			Expect(links).To(HaveLen(1))
			for _, l := range links {
				Expect(l.ItemID).To(Equal(item.ID))
			}
		})

		It("refuses links to unknown items", func() {
			_, err := store.Relations().Link(ctx, "missing", cat.ID)
			Expect(err).To(HaveOccurred())
		})
	})
})
