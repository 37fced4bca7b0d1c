package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sort"
	"time"

	"bortsbooks/internal/domain"
	"bortsbooks/internal/imagefetch"
	"bortsbooks/internal/repository"
	"bortsbooks/internal/scraper"

	"github.com/google/uuid"
)

// Mock repositories for testing
type mockAdminRepository struct {
	admins map[string]*domain.AdminUser
}

func newMockAdminRepository() *mockAdminRepository {
	return &mockAdminRepository{admins: make(map[string]*domain.AdminUser)}
}

func (m *mockAdminRepository) Create(ctx context.Context, admin *domain.AdminUser) error {
	if _, exists := m.admins[admin.Email]; exists {
		return repository.ErrAdminAlreadyExists
	}
	m.admins[admin.Email] = admin
	return nil
}

func (m *mockAdminRepository) FindByEmail(ctx context.Context, email string) (*domain.AdminUser, error) {
	admin, exists := m.admins[email]
	if !exists {
		return nil, repository.ErrAdminNotFound
	}
	return admin, nil
}

func (m *mockAdminRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.AdminUser, error) {
	for _, admin := range m.admins {
		if admin.ID == id {
			return admin, nil
		}
	}
	return nil, repository.ErrAdminNotFound
}

type mockProductRepository struct {
	products   map[uuid.UUID]*domain.Product
	order      []uuid.UUID
	failTitles map[string]bool
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{
		products:   make(map[uuid.UUID]*domain.Product),
		failTitles: make(map[string]bool),
	}
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	if m.failTitles[product.Title] {
		return errors.New("connection refused")
	}
	m.products[product.ID] = product
	m.order = append(m.order, product.ID)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, exists := m.products[id]
	if !exists {
		return nil, repository.ErrProductNotFound
	}
	return product, nil
}

func (m *mockProductRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.Product, error) {
	for _, id := range m.order {
		p := m.products[id]
		if p.ExternalID != nil && *p.ExternalID == externalID {
			return p, nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (m *mockProductRepository) List(ctx context.Context, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error) {
	all := make([]*domain.Product, 0, len(m.order))
	for _, id := range m.order {
		all = append(all, m.products[id])
	}
	start := (page - 1) * pageSize
	if start > len(all) {
		start = len(all)
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

func (m *mockProductRepository) ListMissingImages(ctx context.Context, limit int) ([]*domain.Product, error) {
	return nil, errors.New("not used by this mock")
}

func (m *mockProductRepository) MarkImagesChecked(ctx context.Context, id uuid.UUID, at time.Time) error {
	product, exists := m.products[id]
	if !exists {
		return repository.ErrProductNotFound
	}
	checked := at
	product.ImagesCheckedAt = &checked
	return nil
}

type mockProductImageRepository struct {
	images     map[uuid.UUID]*domain.ProductImage
	failInsert bool
}

func newMockProductImageRepository() *mockProductImageRepository {
	return &mockProductImageRepository{images: make(map[uuid.UUID]*domain.ProductImage)}
}

func (m *mockProductImageRepository) Create(ctx context.Context, image *domain.ProductImage) error {
	if m.failInsert {
		return errors.New("insert failed")
	}
	m.images[image.ID] = image
	return nil
}

func (m *mockProductImageRepository) FindByID(ctx context.Context, productID, imageID uuid.UUID) (*domain.ProductImage, error) {
	image, exists := m.images[imageID]
	if !exists || image.ProductID != productID {
		return nil, repository.ErrProductImageNotFound
	}
	return image, nil
}

func (m *mockProductImageRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.ProductImage, error) {
	images := []*domain.ProductImage{}
	for _, image := range m.images {
		if image.ProductID == productID {
			copied := *image
			images = append(images, &copied)
		}
	}
	sort.Slice(images, func(i, j int) bool {
		if images[i].IsMain != images[j].IsMain {
			return images[i].IsMain
		}
		return images[i].Position < images[j].Position
	})
	return images, nil
}

func (m *mockProductImageRepository) SetMain(ctx context.Context, productID, imageID uuid.UUID) error {
	target, exists := m.images[imageID]
	if !exists || target.ProductID != productID {
		return repository.ErrProductImageNotFound
	}
	for _, image := range m.images {
		if image.ProductID == productID {
			image.IsMain = false
		}
	}
	target.IsMain = true
	return nil
}

func (m *mockProductImageRepository) Delete(ctx context.Context, productID, imageID uuid.UUID) (*domain.ProductImage, error) {
	deleted, exists := m.images[imageID]
	if !exists || deleted.ProductID != productID {
		return nil, repository.ErrProductImageNotFound
	}
	delete(m.images, imageID)

	if deleted.IsMain {
		var next *domain.ProductImage
		for _, image := range m.images {
			if image.ProductID == productID && (next == nil || image.Position < next.Position) {
				next = image
			}
		}
		if next != nil {
			next.IsMain = true
		}
	}
	return deleted, nil
}

func (m *mockProductImageRepository) forProduct(productID uuid.UUID) []*domain.ProductImage {
	images, _ := m.ListByProduct(context.Background(), productID)
	return images
}

// fakeScraper serves canned listing results
type fakeScraper struct {
	listings map[string][]string
	calls    []string
}

func newFakeScraper() *fakeScraper {
	return &fakeScraper{listings: make(map[string][]string)}
}

func (f *fakeScraper) Scrape(ctx context.Context, listingID string) ([]string, *scraper.Debug) {
	f.calls = append(f.calls, listingID)
	urls, ok := f.listings[listingID]
	if !ok {
		return nil, &scraper.Debug{ListingURL: "https://www.ebay.com/itm/" + listingID, HTTPCode: http.StatusNotFound}
	}
	return urls, &scraper.Debug{ListingURL: "https://www.ebay.com/itm/" + listingID, HTTPCode: http.StatusOK, ImageCount: len(urls)}
}

// fakeFetcher returns image bytes for known URLs and fails the rest after three attempts
type fakeFetcher struct {
	images map[string][]byte
	calls  []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{images: make(map[string][]byte)}
}

func (f *fakeFetcher) Fetch(ctx context.Context, imageURL string) (*imagefetch.Result, error) {
	f.calls = append(f.calls, imageURL)
	data, ok := f.images[imageURL]
	if !ok {
		return &imagefetch.Result{URL: imageURL, Ext: ".jpg", Attempts: 3}, imagefetch.ErrEmptyBody
	}
	return &imagefetch.Result{URL: imageURL, Ext: imagefetch.ExtensionFromURL(imageURL), Data: data, Attempts: 1}, nil
}

// memoryStore keeps saved images in a map
type memoryStore struct {
	objects map[string][]byte
	deleted []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte)}
}

func (s *memoryStore) Save(ctx context.Context, key string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.objects[key] = data
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, key string) error {
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *memoryStore) URL(key string) string {
	return "/uploads/" + key
}
