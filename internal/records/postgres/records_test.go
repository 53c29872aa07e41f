package postgres_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/santerec/dep-backend/internal/records"
	recordsPostgres "github.com/santerec/dep-backend/internal/records/postgres"
)

func TestRecordsPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Records Postgres Suite")
}

var _ = Describe("Records PostgreSQL Repository", func() {
	var (
		db   *gorm.DB
		repo *recordsPostgres.RecordsRepository
		ctx  context.Context
	)

	const (
		patientID = int64(1)
		doctorID  = int64(7)
		labID     = int64(8)
		otherLab  = int64(9)
	)

	newTest := func() *records.LabTest {
		return &records.LabTest{
			PatientID:    patientID,
			PrescribedBy: ptr(doctorID),
			TestName:     "full blood count",
			Status:       records.StatusPending,
			CreatedAt:    time.Now(),
		}
	}

	BeforeEach(func() {
		var err error
		// Use SQLite in-memory database for testing
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&records.ClinicalNote{}, &records.Prescription{}, &records.LabTest{})
		Expect(err).NotTo(HaveOccurred())

		repo = recordsPostgres.NewRecordsRepository(db)
		ctx = context.Background()
	})

	Describe("ClaimAndComplete", func() {
		It("should claim an unclaimed test and force completion", func() {
			test := newTest()
			Expect(repo.CreateLabTest(ctx, test)).To(Succeed())

			claimed, err := repo.ClaimAndComplete(ctx, test.ID, labID, "s3://results/1.pdf", time.Now())

			Expect(err).NotTo(HaveOccurred())
			Expect(*claimed.PerformedBy).To(Equal(labID))
			Expect(claimed.Status).To(Equal(records.StatusCompleted))
			Expect(claimed.ResultDocRef).To(Equal("s3://results/1.pdf"))
		})

		It("should complete regardless of the prior status", func() {
			test := newTest()
			test.Status = records.StatusInProgress
			Expect(repo.CreateLabTest(ctx, test)).To(Succeed())

			claimed, err := repo.ClaimAndComplete(ctx, test.ID, labID, "ref", time.Now())

			Expect(err).NotTo(HaveOccurred())
			Expect(claimed.Status).To(Equal(records.StatusCompleted))
		})

		It("should refuse a second laboratory after the claim", func() {
			test := newTest()
			Expect(repo.CreateLabTest(ctx, test)).To(Succeed())

			_, err := repo.ClaimAndComplete(ctx, test.ID, labID, "ref", time.Now())
			Expect(err).NotTo(HaveOccurred())

			_, err = repo.ClaimAndComplete(ctx, test.ID, otherLab, "other", time.Now())

			Expect(err).To(MatchError(records.ErrTestClaimed))

			stored, err := repo.GetLabTest(ctx, test.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(*stored.PerformedBy).To(Equal(labID))
			Expect(stored.ResultDocRef).To(Equal("ref"))
		})

		It("should let the owner upload again", func() {
			test := newTest()
			Expect(repo.CreateLabTest(ctx, test)).To(Succeed())

			_, err := repo.ClaimAndComplete(ctx, test.ID, labID, "v1", time.Now())
			Expect(err).NotTo(HaveOccurred())

			claimed, err := repo.ClaimAndComplete(ctx, test.ID, labID, "v2", time.Now())

			Expect(err).NotTo(HaveOccurred())
			Expect(claimed.ResultDocRef).To(Equal("v2"))
		})
	})

	Describe("UpdateLabStatus", func() {
		It("should update an unclaimed test", func() {
			test := newTest()
			Expect(repo.CreateLabTest(ctx, test)).To(Succeed())

			Expect(repo.UpdateLabStatus(ctx, test.ID, labID, records.StatusInProgress)).To(Succeed())

			stored, err := repo.GetLabTest(ctx, test.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Status).To(Equal(records.StatusInProgress))
		})

		It("should refuse a non-owner once claimed", func() {
			test := newTest()
			Expect(repo.CreateLabTest(ctx, test)).To(Succeed())
			_, err := repo.ClaimAndComplete(ctx, test.ID, labID, "ref", time.Now())
			Expect(err).NotTo(HaveOccurred())

			err = repo.UpdateLabStatus(ctx, test.ID, otherLab, records.StatusCanceled)

			Expect(err).To(MatchError(records.ErrTestClaimed))
		})
	})

	Describe("LabTestsForLab", func() {
		It("should return unclaimed tests and the laboratory's own claims", func() {
			unclaimed := newTest()
			Expect(repo.CreateLabTest(ctx, unclaimed)).To(Succeed())

			mine := newTest()
			Expect(repo.CreateLabTest(ctx, mine)).To(Succeed())
			_, err := repo.ClaimAndComplete(ctx, mine.ID, labID, "ref", time.Now())
			Expect(err).NotTo(HaveOccurred())

			foreign := newTest()
			Expect(repo.CreateLabTest(ctx, foreign)).To(Succeed())
			_, err = repo.ClaimAndComplete(ctx, foreign.ID, otherLab, "ref", time.Now())
			Expect(err).NotTo(HaveOccurred())

			tests, err := repo.LabTestsForLab(ctx, labID)

			Expect(err).NotTo(HaveOccurred())
			Expect(tests).To(HaveLen(2))
		})
	})

	Describe("LabTestsByPatient", func() {
		It("should filter to completed tests when asked", func() {
			pending := newTest()
			Expect(repo.CreateLabTest(ctx, pending)).To(Succeed())

			completed := newTest()
			Expect(repo.CreateLabTest(ctx, completed)).To(Succeed())
			_, err := repo.ClaimAndComplete(ctx, completed.ID, labID, "ref", time.Now())
			Expect(err).NotTo(HaveOccurred())

			tests, err := repo.LabTestsByPatient(ctx, patientID, true)

			Expect(err).NotTo(HaveOccurred())
			Expect(tests).To(HaveLen(1))
			Expect(tests[0].ID).To(Equal(completed.ID))
		})
	})

	Describe("SetInterpretation", func() {
		It("should store the reading and the interpreting doctor", func() {
			test := newTest()
			Expect(repo.CreateLabTest(ctx, test)).To(Succeed())

			Expect(repo.SetInterpretation(ctx, test.ID, doctorID, "normal")).To(Succeed())

			stored, err := repo.GetLabTest(ctx, test.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Interpretation).To(Equal("normal"))
			Expect(*stored.InterpretedBy).To(Equal(doctorID))
		})
	})
})

func ptr(v int64) *int64 {
	return &v
}
