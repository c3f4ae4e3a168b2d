package receipt

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-ocr/internal/validity"
)

// multipartBody builds an upload form with one file part
func multipartBody(filename, contentType string, data []byte) (*bytes.Buffer, string) {
	var b bytes.Buffer
	writer := multipart.NewWriter(&b)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := writer.CreatePart(header)
	Expect(err).NotTo(HaveOccurred())
	_, err = part.Write(data)
	Expect(err).NotTo(HaveOccurred())
	Expect(writer.Close()).To(Succeed())
	return &b, writer.FormDataContentType()
}

func decodeBody(resp *http.Response) map[string]any {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	var out map[string]any
	Expect(json.Unmarshal(body, &out)).To(Succeed())
	return out
}

func postJSON(url string, body string) *http.Response {
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	Expect(err).NotTo(HaveOccurred())
	return resp
}

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		storage     *mockStorage
		engine      *mockEngine
		checker     *mockChecker
		service     *Service
		server      *Server
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		server = NewServerWithMux(service, auth, http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.Handler().ServeHTTP)
	}

	seed := func(name string) {
		_, err := storage.Save(name, []byte("%PDF"))
		Expect(err).NotTo(HaveOccurred())
		Expect(db.SaveDocument(&Document{
			ID:          "doc-" + name,
			FileName:    name,
			FilePath:    name,
			ContentType: "application/pdf",
		})).To(Succeed())
	}

	BeforeEach(func() {
		db = newMockDB()
		storage = newMockStorage()
		engine = &mockEngine{text: bestBuyText}
		checker = &mockChecker{verdict: validity.Verdict{Valid: true}}
		service = NewServiceWithDeps(db, engine, storage, checker, &mockIDGenerator{}, &mockTimeSource{now: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)})
		auth = BasicAuth{}
		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	Describe("handleUpload", func() {
		When("a PDF is uploaded", func() {
			It("should return the stored file name and path", func() {
				body, ct := multipartBody("receipt.pdf", "application/pdf", []byte("%PDF-1.4"))
				resp, err := http.Post(ghttpServer.URL()+"/api/upload", ct, body)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))

				out := decodeBody(resp)
				Expect(out["file_name"]).To(Equal("id-1_receipt.pdf"))
				Expect(out["file_path"]).To(Equal("id-1_receipt.pdf"))
			})
		})

		When("the part has no content type", func() {
			It("should infer it from the extension", func() {
				body, ct := multipartBody("photo.HEIC", "", []byte("heic bytes"))
				resp, err := http.Post(ghttpServer.URL()+"/api/upload", ct, body)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				resp.Body.Close()

				doc, getErr := db.GetDocumentByName("id-1_photo.heic")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(doc.ContentType).To(Equal("image/heic"))
			})
		})

		When("the file type is not supported", func() {
			It("should return Bad Request", func() {
				body, ct := multipartBody("notes.txt", "text/plain", []byte("hello"))
				resp, err := http.Post(ghttpServer.URL()+"/api/upload", ct, body)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(decodeBody(resp)["error"]).To(ContainSubstring("unsupported content type"))
			})
		})

		When("no file is provided", func() {
			It("should return Bad Request", func() {
				var b bytes.Buffer
				writer := multipart.NewWriter(&b)
				writer.Close()

				resp, err := http.Post(ghttpServer.URL()+"/api/upload", writer.FormDataContentType(), &b)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(decodeBody(resp)["error"]).To(ContainSubstring("file"))
			})
		})

		When("the multipart form is malformed", func() {
			It("should return Bad Request", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/upload", "multipart/form-data", bytes.NewBufferString("invalid"))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(decodeBody(resp)["error"]).To(Equal("Error parsing form"))
			})
		})
	})

	Describe("handleValidate", func() {
		When("the document is invalid", func() {
			BeforeEach(func() {
				seed("a.pdf")
				checker.verdict = validity.Verdict{Reason: "startxref not found"}
			})

			It("should report the verdict and reason", func() {
				resp := postJSON(ghttpServer.URL()+"/api/validate", `{"file_name":"a.pdf"}`)
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				out := decodeBody(resp)
				Expect(out["file_name"]).To(Equal("a.pdf"))
				Expect(out["is_valid"]).To(BeFalse())
				Expect(out["invalid_reason"]).To(Equal("startxref not found"))
			})
		})

		When("file_name is missing", func() {
			It("should return Bad Request", func() {
				resp := postJSON(ghttpServer.URL()+"/api/validate", `{}`)
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(decodeBody(resp)["error"]).To(Equal("file_name is required"))
			})
		})

		When("the document is unknown", func() {
			It("should return Not Found", func() {
				resp := postJSON(ghttpServer.URL()+"/api/validate", `{"file_name":"nope.pdf"}`)
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})
	})

	Describe("handleProcess", func() {
		BeforeEach(func() {
			seed("a.pdf")
		})

		When("processing succeeds", func() {
			It("should return the extracted fields", func() {
				resp := postJSON(ghttpServer.URL()+"/api/process", `{"file_name":"a.pdf"}`)
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				out := decodeBody(resp)
				Expect(out["message"]).To(Equal("Receipt processed successfully"))
				Expect(out["merchant"]).To(Equal("Best Buy"))
				Expect(out["amount"]).To(Equal(45.99))
				Expect(out["currency"]).To(Equal("$"))
				Expect(out["payment_method"]).To(Equal("Credit Card"))
				Expect(out["date"]).To(Equal("2023-10-03"))
			})
		})

		When("no date is found", func() {
			BeforeEach(func() {
				engine.text = "Vendor: Corner Shop\nAmount 3"
			})

			It("should return a null date and a two-place amount", func() {
				resp := postJSON(ghttpServer.URL()+"/api/process", `{"file_name":"a.pdf"}`)
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				out := decodeBody(resp)
				Expect(out).To(HaveKeyWithValue("date", BeNil()))
				Expect(out["amount"]).To(BeNumerically("==", 3))
			})
		})

		When("the document is invalid", func() {
			BeforeEach(func() {
				checker.verdict = validity.Verdict{Reason: "not a PDF"}
			})

			It("should return Bad Request with the reason", func() {
				resp := postJSON(ghttpServer.URL()+"/api/process", `{"file_name":"a.pdf"}`)
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(decodeBody(resp)["error"]).To(ContainSubstring("not a PDF"))
			})
		})

		When("OCR finds no text", func() {
			BeforeEach(func() {
				engine.text = "\n\n"
			})

			It("should return Bad Request", func() {
				resp := postJSON(ghttpServer.URL()+"/api/process", `{"file_name":"a.pdf"}`)
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(decodeBody(resp)["error"]).To(Equal(ErrOCREmpty.Error()))
			})
		})

		When("persistence fails", func() {
			BeforeEach(func() {
				db.commitErr = errors.New("disk I/O error")
			})

			It("should return Internal Server Error", func() {
				resp := postJSON(ghttpServer.URL()+"/api/process", `{"file_name":"a.pdf"}`)
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
				Expect(decodeBody(resp)["error"]).To(ContainSubstring("disk I/O error"))
			})
		})

		When("the body is not JSON", func() {
			It("should return Bad Request", func() {
				resp := postJSON(ghttpServer.URL()+"/api/process", `file_name=a.pdf`)
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})
	})

	Describe("handleListReceipts", func() {
		When("receipts exist", func() {
			BeforeEach(func() {
				db.receipts["r-1"] = &Receipt{ID: "r-1", MerchantName: "Best Buy", TotalAmount: decimal.RequireFromString("45.99")}
			})

			It("should return them as a JSON array", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/receipts")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var receipts []*Receipt
				Expect(json.NewDecoder(resp.Body).Decode(&receipts)).To(Succeed())
				Expect(receipts).To(HaveLen(1))
				Expect(receipts[0].MerchantName).To(Equal("Best Buy"))
			})
		})

		When("no receipts exist", func() {
			It("should return an empty array", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/receipts")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				body, _ := io.ReadAll(resp.Body)
				Expect(strings.TrimSpace(string(body))).To(Equal("[]"))
			})
		})

		When("the database fails", func() {
			BeforeEach(func() {
				db.listErr = errors.New("db error")
			})

			It("should return Internal Server Error", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/receipts")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
				resp.Body.Close()
			})
		})
	})

	Describe("handleGetReceipt", func() {
		When("the receipt exists", func() {
			BeforeEach(func() {
				db.receipts["r-1"] = &Receipt{ID: "r-1", MerchantName: "Best Buy"}
			})

			It("should return it", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/receipts/r-1")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(decodeBody(resp)["merchant_name"]).To(Equal("Best Buy"))
			})
		})

		When("the receipt does not exist", func() {
			It("should return Not Found", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/receipts/missing")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})
	})

	Describe("handleListDocuments", func() {
		BeforeEach(func() {
			seed("a.pdf")
		})

		It("should return the uploaded documents", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/documents")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			var docs []*Document
			Expect(json.NewDecoder(resp.Body).Decode(&docs)).To(Succeed())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].FileName).To(Equal("a.pdf"))
		})
	})

	Describe("CORS", func() {
		It("should answer preflight requests", func() {
			req, err := http.NewRequest(http.MethodOptions, ghttpServer.URL()+"/api/process", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})
	})

	Describe("authenticate", func() {
		var req *http.Request

		BeforeEach(func() {
			var err error
			req, err = http.NewRequest(http.MethodGet, "/api/receipts", nil)
			Expect(err).NotTo(HaveOccurred())
		})

		When("no auth is configured", func() {
			It("should return true", func() {
				Expect(server.authenticate(req)).To(BeTrue())
			})
		})

		When("auth is configured", func() {
			BeforeEach(func() {
				auth = BasicAuth{Username: "user", Password: "pass"}
				setupServer()
			})

			It("should accept valid credentials", func() {
				req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("user:pass")))
				Expect(server.authenticate(req)).To(BeTrue())
			})

			It("should reject invalid credentials", func() {
				req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("user:wrong")))
				Expect(server.authenticate(req)).To(BeFalse())
			})

			It("should reject a missing header", func() {
				Expect(server.authenticate(req)).To(BeFalse())
			})
		})
	})

	Describe("requireAuth", func() {
		When("request is unauthorized", func() {
			BeforeEach(func() {
				auth = BasicAuth{Username: "user", Password: "pass"}
				setupServer()
			})

			It("should return Unauthorized with a challenge", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/receipts")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
				Expect(resp.Header.Get("WWW-Authenticate")).NotTo(BeEmpty())
			})
		})
	})
})
