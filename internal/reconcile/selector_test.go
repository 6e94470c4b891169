package reconcile_test

import (
	"context"
	"time"

	"github.com/membreg/reconciler/internal/config"
	"github.com/membreg/reconciler/internal/reconcile"
	"github.com/membreg/reconciler/internal/store"
	"github.com/membreg/reconciler/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("selector and writer", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
	)

	BeforeAll(func() {
		db, err := store.InitDB(config.NewDefault())
		Expect(err).To(BeNil())
		gormdb = db

		s = store.NewStore(db)
		Expect(s.InitialMigration(context.TODO())).To(Succeed())
	})

	AfterAll(func() {
		s.Close()
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM candidates;")
	})

	get := func(id int64) model.Candidate {
		var c model.Candidate
		Expect(gormdb.First(&c, "id = ?", id).Error).To(BeNil())
		return c
	}

	create := func(key string, status model.VerificationStatus, scope string) *model.Candidate {
		c := model.Candidate{ExternalKey: key, StatusID: status}
		if scope != "" {
			c.ScopeCode = &scope
		}
		created, err := s.Candidate().Create(context.TODO(), c)
		Expect(err).To(BeNil())
		return created
	}

	Context("Select", func() {
		It("selects Unknown and VerificationFailed candidates in id order", func() {
			a := create(keyFor(0), model.StatusUnknown, "")
			create(keyFor(1), model.StatusRegistered, "")
			b := create(keyFor(2), model.StatusVerificationFailed, "")
			create(keyFor(3), model.StatusNotRegistered, "")
			c := create(keyFor(4), model.StatusUnknown, "")

			selected, err := reconcile.NewSelector(s.Candidate()).Select(context.TODO(), reconcile.DefaultRunConfig())
			Expect(err).To(BeNil())
			Expect(selected).To(HaveLen(3))
			Expect(selected[0].ID).To(Equal(a.ID))
			Expect(selected[1].ID).To(Equal(b.ID))
			Expect(selected[2].ID).To(Equal(c.ID))
		})

		It("filters by scope and caps the result", func() {
			create(keyFor(0), model.StatusUnknown, "north")
			create(keyFor(1), model.StatusUnknown, "south")
			create(keyFor(2), model.StatusUnknown, "north")
			create(keyFor(3), model.StatusUnknown, "north")

			cfg := reconcile.DefaultRunConfig()
			cfg.Scope = "north"
			selected, err := reconcile.NewSelector(s.Candidate()).Select(context.TODO(), cfg)
			Expect(err).To(BeNil())
			Expect(selected).To(HaveLen(3))

			cfg.Limit = 2
			selected, err = reconcile.NewSelector(s.Candidate()).Select(context.TODO(), cfg)
			Expect(err).To(BeNil())
			Expect(selected).To(HaveLen(2))
			Expect(selected[0].ExternalKey).To(Equal(keyFor(0)))
			Expect(selected[1].ExternalKey).To(Equal(keyFor(2)))
		})

		It("returns an empty set without error", func() {
			create(keyFor(0), model.StatusRegistered, "")

			selected, err := reconcile.NewSelector(s.Candidate()).Select(context.TODO(), reconcile.DefaultRunConfig())
			Expect(err).To(BeNil())
			Expect(selected).To(BeEmpty())
		})
	})

	Context("Writer", func() {
		It("writes status, flag, timestamp and district", func() {
			c := create(keyFor(0), model.StatusUnknown, "")
			district := "0412"
			at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

			w := reconcile.NewWriter(s.Candidate(), false)
			err := w.Write(context.TODO(), c.ID, model.VerificationUpdate{Status: model.StatusRegistered, DistrictCode: &district, VerifiedAt: at})
			Expect(err).To(BeNil())

			got := get(c.ID)
			Expect(got.StatusID).To(Equal(model.StatusRegistered))
			Expect(got.Registered).To(BeTrue())
			Expect(*got.LastVerifiedAt).To(BeTemporally("==", at))
			Expect(*got.DistrictCode).To(Equal("0412"))
		})

		It("leaves the store untouched in dry run", func() {
			c := create(keyFor(0), model.StatusUnknown, "")

			w := reconcile.NewWriter(s.Candidate(), true)
			err := w.Write(context.TODO(), c.ID, model.VerificationUpdate{Status: model.StatusRegistered, VerifiedAt: time.Now()})
			Expect(err).To(BeNil())

			got := get(c.ID)
			Expect(got.StatusID).To(Equal(model.StatusUnknown))
			Expect(got.LastVerifiedAt).To(BeNil())
		})

		It("fails for a missing candidate", func() {
			w := reconcile.NewWriter(s.Candidate(), false)
			err := w.Write(context.TODO(), 424242, model.VerificationUpdate{Status: model.StatusRegistered, VerifiedAt: time.Now()})
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		})
	})
})
