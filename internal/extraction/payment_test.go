package extraction

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ExtractPaymentMethod", func() {
	DescribeTable("payment keywords",
		func(raw string, expected string) {
			Expect(ExtractPaymentMethod(raw)).To(Equal(expected))
		},
		Entry("credit card", "Paid by credit card", "Credit Card"),
		Entry("case-insensitive", "PAID BY DEBIT CARD", "Debit Card"),
		Entry("bare credit", "Credit: 20.00", "Credit"),
		Entry("wallet app", "Paid via PhonePe", "Phonepe"),
		Entry("multi-word keyword", "Net Banking ref 8812", "Net Banking"),
		Entry("cash wins over cash on delivery", "Cash on delivery", "Cash"),
		Entry("substring inside a longer word", "Barcode 4006381333931", "Cod"),
		Entry("no keyword", "Thank you!", Unknown),
	)

	When("the text mentions both credit and credit card", func() {
		It("should prefer credit card because it is earlier in the list", func() {
			Expect(ExtractPaymentMethod("Credit limit applies.\nPaid with Credit Card")).To(Equal("Credit Card"))
		})
	})

	When("several keywords appear", func() {
		It("should follow list order rather than text order", func() {
			Expect(ExtractPaymentMethod("Voucher applied\nRemainder paid in cash")).To(Equal("Cash"))
		})
	})
})
