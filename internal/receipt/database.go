package receipt

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"
)

const (
	documentBucketName     = "documents"
	documentNameBucketName = "document_names"
	receiptBucketName      = "receipts"
)

// DB defines the interface for database operations
type DB interface {
	// SaveDocument creates or updates a document and its name index entry
	SaveDocument(doc *Document) error

	// GetDocument retrieves a document by ID
	GetDocument(id string) (*Document, error)

	// GetDocumentByName retrieves a document by its stored file name
	GetDocumentByName(fileName string) (*Document, error)

	// ListDocuments returns all documents
	ListDocuments() ([]*Document, error)

	// CommitExtraction stores a new receipt and the updated document atomically
	CommitExtraction(doc *Document, receipt *Receipt) error

	// GetReceipt retrieves a receipt by ID
	GetReceipt(id string) (*Receipt, error)

	// ListReceipts returns all receipts, newest first
	ListReceipts() ([]*Receipt, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	// Create buckets if they don't exist
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{documentBucketName, documentNameBucketName, receiptBucketName} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveDocument saves a document to the database
func (b *BoltDB) SaveDocument(doc *Document) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return putDocument(tx, doc)
	})
}

func putDocument(tx *bbolt.Tx, doc *Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling document: %w", err)
	}
	if err := tx.Bucket([]byte(documentBucketName)).Put([]byte(doc.ID), data); err != nil {
		return fmt.Errorf("storing document: %w", err)
	}
	if err := tx.Bucket([]byte(documentNameBucketName)).Put([]byte(doc.FileName), []byte(doc.ID)); err != nil {
		return fmt.Errorf("indexing document name: %w", err)
	}
	return nil
}

func getDocument(tx *bbolt.Tx, id string) (*Document, error) {
	data := tx.Bucket([]byte(documentBucketName)).Get([]byte(id))
	if data == nil {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshaling document: %w", err)
	}
	return &doc, nil
}

// GetDocument retrieves a document by ID
func (b *BoltDB) GetDocument(id string) (*Document, error) {
	var doc *Document
	err := b.db.View(func(tx *bbolt.Tx) error {
		var err error
		doc, err = getDocument(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// GetDocumentByName retrieves a document by its stored file name
func (b *BoltDB) GetDocumentByName(fileName string) (*Document, error) {
	var doc *Document
	err := b.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket([]byte(documentNameBucketName)).Get([]byte(fileName))
		if id == nil {
			return fmt.Errorf("%w: %s", ErrDocumentNotFound, fileName)
		}
		var err error
		doc, err = getDocument(tx, string(id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ListDocuments returns all documents, oldest first
func (b *BoltDB) ListDocuments() ([]*Document, error) {
	docs := make([]*Document, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(documentBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var doc Document
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("unmarshaling document: %w", err)
			}
			docs = append(docs, &doc)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.Before(docs[j].CreatedAt)
	})
	return docs, nil
}

// CommitExtraction writes the receipt and the processed document in a single
// transaction so neither is visible without the other
func (b *BoltDB) CommitExtraction(doc *Document, receipt *Receipt) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(documentBucketName)).Get([]byte(doc.ID)) == nil {
			return fmt.Errorf("%w: %s", ErrDocumentNotFound, doc.ID)
		}

		data, err := json.Marshal(receipt)
		if err != nil {
			return fmt.Errorf("marshaling receipt: %w", err)
		}
		if err := tx.Bucket([]byte(receiptBucketName)).Put([]byte(receipt.ID), data); err != nil {
			return fmt.Errorf("storing receipt: %w", err)
		}

		return putDocument(tx, doc)
	})
}

// GetReceipt retrieves a receipt by ID
func (b *BoltDB) GetReceipt(id string) (*Receipt, error) {
	var receipt *Receipt
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(receiptBucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrReceiptNotFound, id)
		}
		return json.Unmarshal(data, &receipt)
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// ListReceipts returns all receipts, newest first
func (b *BoltDB) ListReceipts() ([]*Receipt, error) {
	receipts := make([]*Receipt, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(receiptBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var receipt Receipt
			if err := json.Unmarshal(v, &receipt); err != nil {
				return fmt.Errorf("unmarshaling receipt: %w", err)
			}
			receipts = append(receipts, &receipt)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(receipts, func(i, j int) bool {
		return receipts[i].CreatedAt.After(receipts[j].CreatedAt)
	})
	return receipts, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
