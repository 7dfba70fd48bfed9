package catalog

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mercato-hq/mercato/internal/backend"
	"github.com/mercato-hq/mercato/internal/media"
	"github.com/mercato-hq/mercato/internal/validate"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

type fakeEnqueuer struct {
	got []BatchRequest
}

func (f *fakeEnqueuer) EnqueueCatalogBatch(ctx context.Context, req BatchRequest) (string, error) {
	f.got = append(f.got, req)
	return "job-1", nil
}

func newTestService(t *testing.T, opts ...Option) (*Service, *backend.Memory, uuid.UUID) {
	t.Helper()
	mem := backend.NewMemory()
	biz := Business{ID: uuid.New(), OwnerID: uuid.New(), Name: "Bakery", Slug: "bakery", Category: "Food", City: "Lyon", Active: true}
	closed := Business{ID: uuid.New(), Name: "Closed Shop", Category: "Food", City: "Lyon"}
	other := Business{ID: uuid.New(), Name: "Atelier", Category: "Crafts", City: "Paris", Active: true}
	require.NoError(t, mem.Seed(tableBusinesses, biz, closed, other))
	opts = append([]Option{WithNow(func() time.Time { return testNow })}, opts...)
	return NewService(NewRepository(mem), nil, opts...), mem, biz.ID
}

func seedProducts(t *testing.T, mem *backend.Memory, biz uuid.UUID, names ...string) []uuid.UUID {
	t.Helper()
	ids := make([]uuid.UUID, len(names))
	for i, name := range names {
		ids[i] = uuid.New()
		require.NoError(t, mem.Seed(tableProducts, Product{
			ID: ids[i], BusinessID: biz, Name: name, Price: decimal.NewFromInt(int64(i + 1)), Active: true,
		}))
	}
	return ids
}

func TestNewProductValidation(t *testing.T) {
	biz := uuid.New()
	res := NewProduct(biz, ProductForm{Name: "  Croissant ", Price: "2.499"}, testNow)
	require.True(t, res.OK())
	p := res.Value()
	assert.Equal(t, "Croissant", p.Name)
	assert.True(t, p.Active)
	assert.Equal(t, "2.5", p.Price.String())

	res = NewProduct(biz, ProductForm{Name: "   ", Price: "-1"}, testNow)
	require.False(t, res.OK())
	assert.Equal(t, "is required", res.Errors()["name"])
	assert.Contains(t, res.Errors(), "price")
	assert.ErrorIs(t, res.Err(), validate.ErrInvalid)
}

func TestApplyProductFormKeepsIdentity(t *testing.T) {
	existing := Product{ID: uuid.New(), BusinessID: uuid.New(), Name: "Old", ImagePath: "abc.jpg", Active: true}
	inactive := false
	res := ApplyProductForm(existing, ProductForm{Name: "New", Price: "10", Active: &inactive}, testNow)
	require.True(t, res.OK())
	p := res.Value()
	assert.Equal(t, existing.ID, p.ID)
	assert.Equal(t, "abc.jpg", p.ImagePath)
	assert.False(t, p.Active)
	assert.Equal(t, testNow, p.UpdatedAt)
}

func TestListingsOnlyShowActive(t *testing.T) {
	svc, mem, biz := newTestService(t)
	ids := seedProducts(t, mem, biz, "Baguette", "Croissant")
	_, err := mem.Update(context.Background(), tableProducts, productFilters(biz, ids[1]), backend.Record{"active": false})
	require.NoError(t, err)

	list, err := svc.ListBusinesses(context.Background(), ListFilter{City: "Lyon"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Bakery", list[0].Name)

	list, err = svc.ListBusinesses(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	detail, err := svc.GetBusiness(context.Background(), biz)
	require.NoError(t, err)
	require.Len(t, detail.Products, 1)
	assert.Equal(t, "Baguette", detail.Products[0].Name)

	all, err := svc.ListProducts(context.Background(), biz)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.GetBusiness(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrBusinessNotFound)
}

func TestCreateAndUpdateProduct(t *testing.T) {
	svc, _, biz := newTestService(t)
	created, err := svc.CreateProduct(context.Background(), biz, ProductForm{Name: "Tart", Price: "4.20"})
	require.NoError(t, err)
	assert.True(t, created.Price.Equal(decimal.RequireFromString("4.2")))

	updated, err := svc.UpdateProduct(context.Background(), biz, created.ID, ProductForm{Name: "Lemon Tart", Price: "5"})
	require.NoError(t, err)
	assert.Equal(t, "Lemon Tart", updated.Name)

	all, err := svc.ListProducts(context.Background(), biz)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Lemon Tart", all[0].Name)

	_, err = svc.UpdateProduct(context.Background(), uuid.New(), created.ID, ProductForm{Name: "x", Price: "1"})
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = svc.CreateProduct(context.Background(), biz, ProductForm{Price: "1"})
	var fields validate.FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Contains(t, fields, "name")
}

func TestRunBatchRecordsPartialFailure(t *testing.T) {
	svc, mem, biz := newTestService(t)
	ids := seedProducts(t, mem, biz, "A", "B", "C")
	missing := uuid.New()
	batch := []uuid.UUID{ids[0], missing, ids[2]}

	var progress []int
	report, err := svc.RunBatch(context.Background(), biz, ActionDeactivate, batch, func(p int) { progress = append(progress, p) })
	require.NoError(t, err)
	assert.Equal(t, []int{33, 66, 100}, progress)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.FailedN)
	assert.False(t, report.Complete())
	assert.Equal(t, []uuid.UUID{missing}, report.Failed())
	require.Len(t, report.Items, 3)
	assert.Equal(t, OutcomeFailed, report.Items[1].Outcome)
	assert.Contains(t, report.Items[1].Error, "not found")

	active, err := NewRepository(mem).ListProducts(context.Background(), biz, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "B", active[0].Name)
}

func TestRunBatchKeepsEarlierSuccesses(t *testing.T) {
	svc, mem, biz := newTestService(t)
	ids := seedProducts(t, mem, biz, "A", "B")
	mem.Fail = func(op, table string, filters []backend.Filter) error {
		if op == "delete" && filters[0].Value == ids[1] {
			return errors.New("connection reset")
		}
		return nil
	}
	report, err := svc.RunBatch(context.Background(), biz, ActionDelete, ids, nil)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{ids[1]}, report.Failed())

	mem.Fail = nil
	left, err := svc.ListProducts(context.Background(), biz)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, ids[1], left[0].ID)

	retry, err := svc.RunBatch(context.Background(), biz, ActionDelete, report.Failed(), nil)
	require.NoError(t, err)
	assert.True(t, retry.Complete())
}

func TestRunBatchSkipsAfterCancel(t *testing.T) {
	svc, mem, biz := newTestService(t)
	ids := seedProducts(t, mem, biz, "A", "B", "C")
	ctx, cancel := context.WithCancel(context.Background())
	report, err := svc.RunBatch(ctx, biz, ActionActivate, ids, func(p int) {
		if p >= 33 {
			cancel()
		}
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 2, report.Skipped)
	assert.True(t, report.Complete())
}

func TestRunBatchRejectsBadRequests(t *testing.T) {
	svc, _, biz := newTestService(t)
	_, err := svc.RunBatch(context.Background(), biz, Action("archive"), []uuid.UUID{uuid.New()}, nil)
	assert.ErrorIs(t, err, ErrUnknownAction)
	_, err = svc.RunBatch(context.Background(), biz, ActionDelete, nil, nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestUploadImages(t *testing.T) {
	store, err := media.NewFileStore(t.TempDir())
	require.NoError(t, err)
	svc, mem, biz := newTestService(t, WithImages(media.NewPipeline(store, nil)))
	ids := seedProducts(t, mem, biz, "A", "B")

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))

	report, err := svc.UploadImages(context.Background(), biz, []ImageItem{
		{ProductID: ids[0], Filename: "a.png", Data: buf.Bytes()},
		{ProductID: ids[1], Filename: "b.txt", Data: []byte("not an image at all")},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, []uuid.UUID{ids[1]}, report.Failed())

	p, err := NewRepository(mem).GetProduct(context.Background(), biz, ids[0])
	require.NoError(t, err)
	assert.NotEmpty(t, p.ImagePath)
	_, err = store.Get(context.Background(), p.ImagePath)
	assert.NoError(t, err)
}

func TestEnqueueBatch(t *testing.T) {
	q := &fakeEnqueuer{}
	svc, _, biz := newTestService(t, WithEnqueuer(q))
	id, err := svc.EnqueueBatch(context.Background(), BatchRequest{BusinessID: biz, Action: ActionDelete, IDs: []uuid.UUID{uuid.New()}})
	require.NoError(t, err)
	assert.Equal(t, "job-1", id)
	require.Len(t, q.got, 1)

	_, err = svc.EnqueueBatch(context.Background(), BatchRequest{BusinessID: biz, Action: ActionUploadImage, IDs: []uuid.UUID{uuid.New()}})
	assert.ErrorIs(t, err, ErrUnknownAction)

	plain, _, _ := newTestService(t)
	_, err = plain.EnqueueBatch(context.Background(), BatchRequest{BusinessID: biz, Action: ActionDelete, IDs: []uuid.UUID{uuid.New()}})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
