package store_test

import (
	"context"

	"github.com/membreg/reconciler/internal/config"
	st "github.com/membreg/reconciler/internal/store"
	"github.com/membreg/reconciler/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("Store", Ordered, func() {
	var (
		store  st.Store
		gormDB *gorm.DB
	)

	BeforeAll(func() {
		cfg := config.NewDefault()
		db, err := st.InitDB(cfg)
		Expect(err).To(BeNil())
		gormDB = db

		store = st.NewStore(db)
		Expect(store).ToNot(BeNil())
		Expect(store.InitialMigration(context.TODO())).To(Succeed())
	})

	AfterAll(func() {
		store.Close()
	})

	AfterEach(func() {
		gormDB.Exec("DELETE FROM candidates;")
	})

	It("pings the database", func() {
		Expect(store.Ping(context.TODO())).To(Succeed())
	})

	It("exposes the candidate store", func() {
		c, err := store.Candidate().Create(context.TODO(), model.Candidate{ExternalKey: "0123456789"})
		Expect(err).To(BeNil())
		Expect(c.ID).ToNot(BeZero())

		count := 0
		err = gormDB.Raw("SELECT COUNT(*) from candidates;").Scan(&count).Error
		Expect(err).To(BeNil())
		Expect(count).To(Equal(1))
	})

	It("migrates idempotently", func() {
		Expect(store.InitialMigration(context.TODO())).To(Succeed())
		Expect(store.InitialMigration(context.TODO())).To(Succeed())
	})
})
