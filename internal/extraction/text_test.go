package extraction

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Normalize", func() {
	var (
		raw  string
		text Text
		err  error
	)

	JustBeforeEach(func() {
		text, err = Normalize(raw)
	})

	When("the text has blank and padded lines", func() {
		BeforeEach(func() {
			raw = "  ACME MARKET \n\n\t123 Main St\r\n   \nTotal: 5.00\n"
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should keep only trimmed, non-empty lines in order", func() {
			Expect(text.Lines).To(Equal([]string{"ACME MARKET", "123 Main St", "Total: 5.00"}))
		})

		It("should keep the raw text untouched", func() {
			Expect(text.Raw).To(Equal(raw))
		})

		It("should expose the first line", func() {
			Expect(text.FirstLine()).To(Equal("ACME MARKET"))
		})
	})

	When("the text is only whitespace", func() {
		BeforeEach(func() {
			raw = "   \n\t\n\f\n"
		})

		It("returns ErrEmptyText", func() {
			Expect(err).To(MatchError(ErrEmptyText))
		})
	})

	When("the text is empty", func() {
		BeforeEach(func() {
			raw = ""
		})

		It("returns ErrEmptyText", func() {
			Expect(err).To(MatchError(ErrEmptyText))
		})
	})
})
