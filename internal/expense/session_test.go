package expense

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("MemorySessionStore", func() {
	var (
		timeSrc *mockTimeSource
		store   *MemorySessionStore
	)

	BeforeEach(func() {
		timeSrc = &mockTimeSource{now: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)}
		store = NewMemorySessionStoreWithDeps(0, timeSrc)
	})

	Describe("Put and Take", func() {
		When("a session is stored", func() {
			BeforeEach(func() {
				err := store.Put("alice", Session{RawText: "STARBUCKS $4.50", CreatedAt: timeSrc.now})
				Expect(err).NotTo(HaveOccurred())
			})

			It("should report a pending session", func() {
				pending, err := store.HasPending("alice")
				Expect(err).NotTo(HaveOccurred())
				Expect(pending).To(BeTrue())
			})

			It("should return the session from Take", func() {
				session, ok, err := store.Take("alice")
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeTrue())
				Expect(session.RawText).To(Equal("STARBUCKS $4.50"))
			})

			It("should remove the session once taken", func() {
				_, _, err := store.Take("alice")
				Expect(err).NotTo(HaveOccurred())

				_, ok, err := store.Take("alice")
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeFalse())
			})

			It("should not affect other users", func() {
				pending, err := store.HasPending("bob")
				Expect(err).NotTo(HaveOccurred())
				Expect(pending).To(BeFalse())
			})
		})

		When("a second session is stored for the same user", func() {
			BeforeEach(func() {
				Expect(store.Put("alice", Session{RawText: "first"})).To(Succeed())
				Expect(store.Put("alice", Session{RawText: "second"})).To(Succeed())
			})

			It("should keep only the latest session", func() {
				session, ok, err := store.Take("alice")
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeTrue())
				Expect(session.RawText).To(Equal("second"))

				_, ok, err = store.Take("alice")
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeFalse())
			})
		})

		When("no session exists", func() {
			It("should return not-found from Take", func() {
				_, ok, err := store.Take("alice")
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeFalse())
			})
		})
	})

	Describe("expiry", func() {
		BeforeEach(func() {
			store = NewMemorySessionStoreWithDeps(30*time.Minute, timeSrc)
			err := store.Put("alice", Session{RawText: "STARBUCKS $4.50", CreatedAt: timeSrc.now})
			Expect(err).NotTo(HaveOccurred())
		})

		When("the ttl has not elapsed", func() {
			BeforeEach(func() {
				timeSrc.now = timeSrc.now.Add(29 * time.Minute)
			})

			It("should still return the session", func() {
				pending, err := store.HasPending("alice")
				Expect(err).NotTo(HaveOccurred())
				Expect(pending).To(BeTrue())
			})
		})

		When("the ttl has elapsed", func() {
			BeforeEach(func() {
				timeSrc.now = timeSrc.now.Add(31 * time.Minute)
			})

			It("should report no pending session", func() {
				pending, err := store.HasPending("alice")
				Expect(err).NotTo(HaveOccurred())
				Expect(pending).To(BeFalse())
			})

			It("should not return the session from Take", func() {
				_, ok, err := store.Take("alice")
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeFalse())
			})
		})
	})
})
