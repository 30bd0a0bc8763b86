package expense

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("MemoryLedger", func() {
	var (
		ledger *MemoryLedger
		base   time.Time
	)

	BeforeEach(func() {
		ledger = NewMemoryLedger()
		base = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	})

	entry := func(operation string, cost string, offset time.Duration) UsageEntry {
		return UsageEntry{
			Operation: operation,
			Provider:  "gemini-2.5-pro",
			Tokens:    100,
			Cost:      decimal.RequireFromString(cost),
			UserID:    "alice",
			Timestamp: base.Add(offset),
		}
	}

	When("no entries have been recorded", func() {
		It("should report a zero total", func() {
			total, err := ledger.TotalFor("alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(total.IsZero()).To(BeTrue())
		})

		It("should report a zero count", func() {
			count, err := ledger.CountFor("alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())
		})

		It("should return no recent entries", func() {
			recent, err := ledger.Recent("alice", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(recent).To(BeEmpty())
		})
	})

	When("entries are recorded", func() {
		BeforeEach(func() {
			Expect(ledger.Record(entry(OpExtraction, "0.000125", 0))).To(Succeed())
			Expect(ledger.Record(entry(OpInterpretation, "0.00003", time.Minute))).To(Succeed())
			Expect(ledger.Record(entry(OpExtraction, "0.00025", 2*time.Minute))).To(Succeed())
		})

		It("should total all recorded costs", func() {
			total, err := ledger.TotalFor("alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(total.Equal(decimal.RequireFromString("0.000405"))).To(BeTrue())
		})

		It("should count all entries", func() {
			count, err := ledger.CountFor("alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(3))
		})

		It("should return recent entries most recent first", func() {
			recent, err := ledger.Recent("alice", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(recent).To(HaveLen(3))
			Expect(recent[0].Timestamp).To(Equal(base.Add(2 * time.Minute)))
			Expect(recent[1].Timestamp).To(Equal(base.Add(time.Minute)))
			Expect(recent[2].Timestamp).To(Equal(base))
		})

		It("should return no entries for a zero limit", func() {
			recent, err := ledger.Recent("alice", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(recent).To(BeEmpty())
		})

		It("should return no entries for a negative limit", func() {
			recent, err := ledger.Recent("alice", -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(recent).To(BeEmpty())
		})

		It("should honor the recent limit", func() {
			recent, err := ledger.Recent("alice", 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(recent).To(HaveLen(2))
			Expect(recent[0].Operation).To(Equal(OpExtraction))
			Expect(recent[1].Operation).To(Equal(OpInterpretation))
		})

		It("should keep the total equal to the sum of all entries", func() {
			total, err := ledger.TotalFor("alice")
			Expect(err).NotTo(HaveOccurred())

			recent, err := ledger.Recent("alice", 100)
			Expect(err).NotTo(HaveOccurred())

			sum := decimal.Zero
			for _, e := range recent {
				sum = sum.Add(e.Cost)
			}
			Expect(total.Equal(sum)).To(BeTrue())
		})

		It("should not leak entries across users", func() {
			count, err := ledger.CountFor("bob")
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())
		})

		It("should never decrease the total as entries accumulate", func() {
			before, err := ledger.TotalFor("alice")
			Expect(err).NotTo(HaveOccurred())

			Expect(ledger.Record(entry(OpInterpretation, "0.00001", 3*time.Minute))).To(Succeed())

			after, err := ledger.TotalFor("alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(after.GreaterThanOrEqual(before)).To(BeTrue())
		})
	})
})

var _ = Describe("CostModel", func() {
	var (
		model CostModel
		now   time.Time
	)

	BeforeEach(func() {
		model = DefaultCostModel()
		now = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	})

	Describe("ExtractionEntry", func() {
		It("should estimate tokens from the text length", func() {
			entry := model.ExtractionEntry("alice", "STARBUCKS $4.50 2024-01-15", now)
			Expect(entry.Operation).To(Equal(OpExtraction))
			Expect(entry.Tokens).To(Equal(len("STARBUCKS $4.50 2024-01-15") / 3))
			Expect(entry.UserID).To(Equal("alice"))
			Expect(entry.Timestamp).To(Equal(now))
		})

		It("should price tokens at the provider rate", func() {
			entry := model.ExtractionEntry("alice", "STARBUCKS $4.50 2024-01-15", now)
			rate := model.Rates[model.ExtractionProvider]
			expected := rate.Mul(decimal.NewFromInt(int64(entry.Tokens)))
			Expect(entry.Cost.Equal(expected)).To(BeTrue())
		})
	})

	Describe("InterpretationEntry", func() {
		It("should estimate tokens from the text length", func() {
			entry := model.InterpretationEntry("alice", "STARBUCKS $4.50 2024-01-15", now)
			Expect(entry.Operation).To(Equal(OpInterpretation))
			Expect(entry.Tokens).To(Equal(len("STARBUCKS $4.50 2024-01-15") / 4))
		})

		It("should never produce a negative cost", func() {
			entry := model.InterpretationEntry("alice", "", now)
			Expect(entry.Cost.IsNegative()).To(BeFalse())
		})
	})
})
