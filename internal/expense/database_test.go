package expense

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("BoltDB", func() {
	var (
		db  *BoltDB
		err error
	)

	BeforeEach(func() {
		path := filepath.Join(GinkgoT().TempDir(), "expense-cfo.db")
		db, err = NewBoltDB(path, 0)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(db.Close()).To(Succeed())
	})

	Describe("sessions", func() {
		When("a session is stored", func() {
			BeforeEach(func() {
				session := Session{
					RawText:   "STARBUCKS $4.50 2024-01-15",
					CreatedAt: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
				}
				Expect(db.Put("alice", session)).To(Succeed())
			})

			It("should report a pending session", func() {
				pending, hasErr := db.HasPending("alice")
				Expect(hasErr).NotTo(HaveOccurred())
				Expect(pending).To(BeTrue())
			})

			It("should return and remove the session on Take", func() {
				session, ok, takeErr := db.Take("alice")
				Expect(takeErr).NotTo(HaveOccurred())
				Expect(ok).To(BeTrue())
				Expect(session.RawText).To(Equal("STARBUCKS $4.50 2024-01-15"))

				_, ok, takeErr = db.Take("alice")
				Expect(takeErr).NotTo(HaveOccurred())
				Expect(ok).To(BeFalse())
			})

			It("should replace the session on a second Put", func() {
				Expect(db.Put("alice", Session{RawText: "WALMART $25.00"})).To(Succeed())

				session, ok, takeErr := db.Take("alice")
				Expect(takeErr).NotTo(HaveOccurred())
				Expect(ok).To(BeTrue())
				Expect(session.RawText).To(Equal("WALMART $25.00"))
			})
		})

		When("no session exists", func() {
			It("should report nothing pending", func() {
				pending, hasErr := db.HasPending("alice")
				Expect(hasErr).NotTo(HaveOccurred())
				Expect(pending).To(BeFalse())
			})

			It("should return not-found from Take", func() {
				_, ok, takeErr := db.Take("alice")
				Expect(takeErr).NotTo(HaveOccurred())
				Expect(ok).To(BeFalse())
			})
		})

		When("a ttl is configured", func() {
			var ttlDB *BoltDB

			BeforeEach(func() {
				path := filepath.Join(GinkgoT().TempDir(), "ttl.db")
				var ttlErr error
				ttlDB, ttlErr = NewBoltDB(path, 30*time.Minute)
				Expect(ttlErr).NotTo(HaveOccurred())
				DeferCleanup(ttlDB.Close)

				stale := Session{
					RawText:   "old receipt",
					CreatedAt: time.Now().Add(-time.Hour),
				}
				Expect(ttlDB.Put("alice", stale)).To(Succeed())
			})

			It("should not return an expired session", func() {
				_, ok, takeErr := ttlDB.Take("alice")
				Expect(takeErr).NotTo(HaveOccurred())
				Expect(ok).To(BeFalse())
			})
		})
	})

	Describe("usage", func() {
		entry := func(operation, cost string, ts time.Time) UsageEntry {
			return UsageEntry{
				Operation: operation,
				Provider:  "gemini-2.5-pro",
				Tokens:    42,
				Cost:      decimal.RequireFromString(cost),
				UserID:    "alice",
				Timestamp: ts,
			}
		}

		When("entries are recorded", func() {
			var base time.Time

			BeforeEach(func() {
				base = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
				Expect(db.Record(entry(OpExtraction, "0.000125", base))).To(Succeed())
				Expect(db.Record(entry(OpInterpretation, "0.00003", base.Add(time.Minute)))).To(Succeed())
				Expect(db.Record(entry(OpExtraction, "0.00025", base.Add(2*time.Minute)))).To(Succeed())
			})

			It("should total all recorded costs", func() {
				total, totalErr := db.TotalFor("alice")
				Expect(totalErr).NotTo(HaveOccurred())
				Expect(total.Equal(decimal.RequireFromString("0.000405"))).To(BeTrue())
			})

			It("should count all entries", func() {
				count, countErr := db.CountFor("alice")
				Expect(countErr).NotTo(HaveOccurred())
				Expect(count).To(Equal(3))
			})

			It("should return recent entries most recent first", func() {
				recent, recentErr := db.Recent("alice", 2)
				Expect(recentErr).NotTo(HaveOccurred())
				Expect(recent).To(HaveLen(2))
				Expect(recent[0].Timestamp.Equal(base.Add(2 * time.Minute))).To(BeTrue())
				Expect(recent[1].Timestamp.Equal(base.Add(time.Minute))).To(BeTrue())
			})

			It("should not leak entries across users", func() {
				count, countErr := db.CountFor("bob")
				Expect(countErr).NotTo(HaveOccurred())
				Expect(count).To(BeZero())
			})

			It("should return no entries for a negative limit", func() {
				recent, recentErr := db.Recent("alice", -1)
				Expect(recentErr).NotTo(HaveOccurred())
				Expect(recent).To(BeEmpty())
			})
		})

		When("no entries exist for a user", func() {
			It("should report a zero total", func() {
				total, totalErr := db.TotalFor("alice")
				Expect(totalErr).NotTo(HaveOccurred())
				Expect(total.IsZero()).To(BeTrue())
			})

			It("should return no recent entries", func() {
				recent, recentErr := db.Recent("alice", 5)
				Expect(recentErr).NotTo(HaveOccurred())
				Expect(recent).To(BeEmpty())
			})
		})
	})
})
