package ocr

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(2, 2, color.Black)
	return img
}

func encodePNG(img image.Image) []byte {
	var buf bytes.Buffer
	Expect(png.Encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("renderPages", func() {
	var (
		data        []byte
		contentType string
		pages       [][]byte
		err         error
	)

	JustBeforeEach(func() {
		pages, err = renderPages(data, contentType, DefaultDPI)
	})

	When("the document is already a PNG", func() {
		BeforeEach(func() {
			data = encodePNG(testImage())
			contentType = "image/png"
		})

		It("should pass the bytes through as a single page", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(pages).To(HaveLen(1))
			Expect(pages[0]).To(Equal(data))
		})
	})

	When("the document is a JPEG", func() {
		BeforeEach(func() {
			var buf bytes.Buffer
			Expect(jpeg.Encode(&buf, testImage(), nil)).To(Succeed())
			data = buf.Bytes()
			contentType = "image/jpeg"
		})

		It("should convert it to a PNG page", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(pages).To(HaveLen(1))

			_, format, decodeErr := image.Decode(bytes.NewReader(pages[0]))
			Expect(decodeErr).NotTo(HaveOccurred())
			Expect(format).To(Equal("png"))
		})
	})

	When("the image bytes are corrupt", func() {
		BeforeEach(func() {
			data = []byte("not an image")
			contentType = "image/jpeg"
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(ContainSubstring("decoding image")))
		})
	})

	When("the PDF bytes are corrupt", func() {
		BeforeEach(func() {
			data = []byte("not a pdf")
			contentType = "application/pdf"
		})

		It("returns the error", func() {
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("isHEICFormat", func() {
	It("should recognize a heic ftyp brand", func() {
		data := append([]byte{0, 0, 0, 24}, []byte("ftypheic0000")...)
		Expect(isHEICFormat(data)).To(BeTrue())
	})

	It("should reject a PNG", func() {
		Expect(isHEICFormat(encodePNG(testImage()))).To(BeFalse())
	})

	It("should reject short input", func() {
		Expect(isHEICFormat([]byte("ftyp"))).To(BeFalse())
	})
})

var _ = Describe("normalizeMimeType", func() {
	It("should lowercase and strip parameters", func() {
		Expect(normalizeMimeType(" Application/PDF; name=x.pdf")).To(Equal("application/pdf"))
	})
})
