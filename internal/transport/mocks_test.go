package transport

import (
	"context"
	"io"
	"net/http"

	"bortsbooks/internal/domain"
	"bortsbooks/internal/importer"
	"bortsbooks/internal/repository"
	"bortsbooks/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func passThrough(next http.Handler) http.Handler { return next }

// fakeImportService records what the handler passed in
type fakeImportService struct {
	filename string
	content  string
	opts     service.ImportOptions
	listing  service.ListingInput
	imported map[string]bool
	fileErr  error
}

func newFakeImportService() *fakeImportService {
	return &fakeImportService{imported: make(map[string]bool)}
}

func (f *fakeImportService) ImportFile(ctx context.Context, filename string, r io.Reader, opts service.ImportOptions) (*service.ImportResult, error) {
	if f.fileErr != nil {
		return nil, f.fileErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.filename, f.content, f.opts = filename, string(data), opts

	result := &service.ImportResult{Imported: 1, ErrorCount: 1, Errors: []string{"Row 3: missing title"}}
	if opts.Debug {
		result.Debug = []*service.DebugEntry{{Row: 2, ImageURLs: []string{}}}
	}
	return result, nil
}

func (f *fakeImportService) ImportListing(ctx context.Context, in service.ListingInput) (*domain.Product, *service.DebugEntry, error) {
	f.listing = in
	if f.imported[in.ItemID] {
		return nil, nil, service.ErrListingAlreadyImported
	}
	f.imported[in.ItemID] = true

	externalID := in.ItemID
	product := &domain.Product{
		ID:         uuid.New(),
		Title:      in.Title,
		Price:      importer.NormalizePrice(in.Price),
		Condition:  domain.ParseCondition(in.Condition),
		ExternalID: &externalID,
	}
	return product, &service.DebugEntry{Row: 1, ProductID: &product.ID, ImageURLs: []string{}}, nil
}

func (f *fakeImportService) FetchImages(ctx context.Context, product *domain.Product) *service.DebugEntry {
	return &service.DebugEntry{ProductID: &product.ID}
}

// fakeProductService keeps products and images in maps
type fakeProductService struct {
	products map[uuid.UUID]*domain.ProductWithImages
	listArgs struct {
		page, pageSize int
		sortBy         string
		sortOrder      repository.SortOrder
	}
}

func newFakeProductService() *fakeProductService {
	return &fakeProductService{products: make(map[uuid.UUID]*domain.ProductWithImages)}
}

func (f *fakeProductService) add(imageCount int) *domain.ProductWithImages {
	p := &domain.ProductWithImages{
		Product: domain.Product{ID: uuid.New(), Title: "Akira 1", Price: decimal.RequireFromString("9.00"), Condition: domain.ConditionGood},
	}
	for i := 0; i < imageCount; i++ {
		p.Images = append(p.Images, &domain.ProductImage{ID: uuid.New(), ProductID: p.ID, Position: i, IsMain: i == 0})
	}
	f.products[p.ID] = p
	return p
}

func (f *fakeProductService) ListProducts(ctx context.Context, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error) {
	f.listArgs.page, f.listArgs.pageSize, f.listArgs.sortBy, f.listArgs.sortOrder = page, pageSize, sortBy, sortOrder

	var out []*domain.Product
	for _, p := range f.products {
		product := p.Product
		out = append(out, &product)
	}
	return out, len(out), nil
}

func (f *fakeProductService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.ProductWithImages, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeProductService) image(productID, imageID uuid.UUID) (*domain.ProductWithImages, int, error) {
	p, ok := f.products[productID]
	if !ok {
		return nil, -1, repository.ErrProductNotFound
	}
	for i, image := range p.Images {
		if image.ID == imageID {
			return p, i, nil
		}
	}
	return nil, -1, repository.ErrProductImageNotFound
}

func (f *fakeProductService) SetMainImage(ctx context.Context, productID, imageID uuid.UUID) error {
	p, idx, err := f.image(productID, imageID)
	if err != nil {
		return err
	}
	for i, image := range p.Images {
		image.IsMain = i == idx
	}
	return nil
}

func (f *fakeProductService) DeleteImage(ctx context.Context, productID, imageID uuid.UUID) error {
	p, idx, err := f.image(productID, imageID)
	if err != nil {
		return err
	}
	p.Images = append(p.Images[:idx], p.Images[idx+1:]...)
	return nil
}
