package documents

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stocklane/stocklane/internal/stock"
)

type quantKey struct {
	productID  int64
	locationID int64
}

type seqKey struct {
	warehouseCode string
	opCode        string
}

// memoryRepo mimics the transactional store. WithTx snapshots all state and
// restores it when the callback errors, so rollback behaviour is observable.
// Transactions run one at a time, like rows held under FOR UPDATE.
type memoryRepo struct {
	mu             sync.Mutex
	quants         map[quantKey]stock.Quant
	movements      []stock.Movement
	documents      map[int64]Document
	sequences      map[seqKey]int64
	warehouseCodes map[int64]string
	nextMovementID int64
	nextDocumentID int64
	nextLineID     int64

	txErr      error
	txErrCount int
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		quants:         make(map[quantKey]stock.Quant),
		documents:      make(map[int64]Document),
		sequences:      make(map[seqKey]int64),
		warehouseCodes: map[int64]string{1: "WH", 2: "WH2"},
	}
}

func (r *memoryRepo) snapshot() *memoryRepo {
	quants := make(map[quantKey]stock.Quant, len(r.quants))
	for k, v := range r.quants {
		quants[k] = v
	}
	documents := make(map[int64]Document, len(r.documents))
	for k, v := range r.documents {
		lines := make([]Line, len(v.Lines))
		copy(lines, v.Lines)
		v.Lines = lines
		documents[k] = v
	}
	sequences := make(map[seqKey]int64, len(r.sequences))
	for k, v := range r.sequences {
		sequences[k] = v
	}
	movements := make([]stock.Movement, len(r.movements))
	copy(movements, r.movements)
	return &memoryRepo{
		quants:         quants,
		movements:      movements,
		documents:      documents,
		sequences:      sequences,
		nextMovementID: r.nextMovementID,
		nextDocumentID: r.nextDocumentID,
		nextLineID:     r.nextLineID,
	}
}

func (r *memoryRepo) restore(snap *memoryRepo) {
	r.quants = snap.quants
	r.movements = snap.movements
	r.documents = snap.documents
	r.sequences = snap.sequences
	r.nextMovementID = snap.nextMovementID
	r.nextDocumentID = snap.nextDocumentID
	r.nextLineID = snap.nextLineID
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.txErrCount > 0 {
		r.txErrCount--
		return r.txErr
	}
	snap := r.snapshot()
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.restore(snap)
		return err
	}
	return nil
}

func (r *memoryRepo) GetDocument(ctx context.Context, id int64) (Document, error) {
	doc, ok := r.documents[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (r *memoryRepo) ListDocuments(ctx context.Context, filter Filter) ([]Document, error) {
	docs := []Document{}
	for _, doc := range r.documents {
		if filter.Type != "" && doc.Type != filter.Type {
			continue
		}
		if filter.Status != "" && doc.Status != filter.Status {
			continue
		}
		if filter.WarehouseID != 0 && doc.WarehouseID != filter.WarehouseID {
			continue
		}
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID > docs[j].ID })
	if filter.Limit > 0 && len(docs) > filter.Limit {
		docs = docs[:filter.Limit]
	}
	return docs, nil
}

func (tx *memoryTx) GetQuantForUpdate(ctx context.Context, productID, locationID int64) (stock.Quant, error) {
	if quant, ok := tx.repo.quants[quantKey{productID: productID, locationID: locationID}]; ok {
		return quant, nil
	}
	return stock.Quant{ProductID: productID, LocationID: locationID}, stock.ErrQuantNotFound
}

func (tx *memoryTx) UpsertQuant(ctx context.Context, quant stock.Quant) error {
	tx.repo.quants[quantKey{productID: quant.ProductID, locationID: quant.LocationID}] = quant
	return nil
}

func (tx *memoryTx) InsertMovement(ctx context.Context, movement stock.Movement) (int64, error) {
	tx.repo.nextMovementID++
	movement.ID = tx.repo.nextMovementID
	tx.repo.movements = append(tx.repo.movements, movement)
	return movement.ID, nil
}

func (tx *memoryTx) InsertDocument(ctx context.Context, doc Document) (int64, error) {
	tx.repo.nextDocumentID++
	doc.ID = tx.repo.nextDocumentID
	lines := make([]Line, len(doc.Lines))
	copy(lines, doc.Lines)
	doc.Lines = lines
	tx.repo.documents[doc.ID] = doc
	return doc.ID, nil
}

func (tx *memoryTx) InsertLines(ctx context.Context, documentID int64, lines []Line) error {
	doc := tx.repo.documents[documentID]
	doc.Lines = nil
	for _, line := range lines {
		tx.repo.nextLineID++
		line.ID = tx.repo.nextLineID
		line.DocumentID = documentID
		doc.Lines = append(doc.Lines, line)
	}
	tx.repo.documents[documentID] = doc
	return nil
}

func (tx *memoryTx) GetDocumentForUpdate(ctx context.Context, id int64) (Document, error) {
	return tx.repo.GetDocument(ctx, id)
}

func (tx *memoryTx) UpdateDocumentStatus(ctx context.Context, id int64, status Status, postedAt *time.Time, validatedBy *int64) error {
	doc, ok := tx.repo.documents[id]
	if !ok {
		return ErrNotFound
	}
	doc.Status = status
	if postedAt != nil {
		doc.PostedAt = postedAt
	}
	if validatedBy != nil {
		doc.ValidatedBy = validatedBy
	}
	tx.repo.documents[id] = doc
	return nil
}

func (tx *memoryTx) NextReference(ctx context.Context, warehouseCode, opCode string) (int64, error) {
	key := seqKey{warehouseCode: warehouseCode, opCode: opCode}
	tx.repo.sequences[key]++
	return tx.repo.sequences[key], nil
}

func (tx *memoryTx) GetWarehouseCode(ctx context.Context, warehouseID int64) (string, error) {
	code, ok := tx.repo.warehouseCodes[warehouseID]
	if !ok {
		return "", ErrInvalidDocument
	}
	return code, nil
}
