package ocr

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("New", func() {
	var (
		cfg    Config
		engine Engine
		err    error
	)

	BeforeEach(func() {
		cfg = Config{DPI: DefaultDPI}
	})

	JustBeforeEach(func() {
		engine, err = New(context.Background(), cfg)
	})

	When("no engine is named", func() {
		It("should default to Tesseract", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(engine).To(BeAssignableToTypeOf(&Tesseract{}))
		})
	})

	When("ollama is named", func() {
		BeforeEach(func() {
			cfg.Engine = "ollama"
		})

		It("should build an Ollama engine with defaults", func() {
			Expect(err).NotTo(HaveOccurred())
			ollama, ok := engine.(*Ollama)
			Expect(ok).To(BeTrue())
			Expect(ollama.baseURL).To(Equal("http://localhost:11434"))
			Expect(ollama.model).To(Equal("llava"))
		})
	})

	When("pdftext is named", func() {
		BeforeEach(func() {
			cfg.Engine = "pdftext"
		})

		It("should build a PDFText engine", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(engine).To(BeAssignableToTypeOf(&PDFText{}))
		})
	})

	When("gemini is named without a key", func() {
		BeforeEach(func() {
			GinkgoT().Setenv("GEMINI_API_KEY", "")
			cfg.Engine = "gemini"
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(ContainSubstring("API key is required")))
		})
	})

	When("the engine is unknown", func() {
		BeforeEach(func() {
			cfg.Engine = "abbyy"
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(ContainSubstring(`unknown OCR engine "abbyy"`)))
		})
	})
})

var _ = Describe("PDFText", func() {
	It("should refuse images", func() {
		_, err := NewPDFText().RecognizeText(context.Background(), []byte("png"), "image/png")
		Expect(err).To(MatchError(ContainSubstring("cannot read")))
	})
})
