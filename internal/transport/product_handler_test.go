package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"bortsbooks/internal/domain"
	"bortsbooks/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newProductRouter(svc *fakeProductService) http.Handler {
	r := chi.NewRouter()
	NewProductHandler(svc, zap.NewNop()).RegisterRoutes(r, passThrough)
	return r
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestListProducts_Pagination(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		page      int
		pageSize  int
		sortBy    string
		sortOrder repository.SortOrder
	}{
		{name: "defaults", query: "", page: 1, pageSize: 20, sortOrder: repository.SortOrderDesc},
		{name: "explicit", query: "?page=3&page_size=5&sort_by=price&sort_order=asc", page: 3, pageSize: 5, sortBy: "price", sortOrder: repository.SortOrderAsc},
		{name: "clamped", query: "?page=-2&page_size=1000", page: 1, pageSize: 100, sortOrder: repository.SortOrderDesc},
		{name: "garbage", query: "?page=x&page_size=y&sort_order=sideways", page: 1, pageSize: 20, sortOrder: repository.SortOrderDesc},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeProductService()
			svc.add(0)

			w := serve(newProductRouter(svc), http.MethodGet, "/api/products"+tt.query)
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", w.Code)
			}

			args := svc.listArgs
			if args.page != tt.page || args.pageSize != tt.pageSize || args.sortBy != tt.sortBy || args.sortOrder != tt.sortOrder {
				t.Errorf("unexpected list arguments %+v", args)
			}

			var response ProductListResponse
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if response.Total != 1 || len(response.Products) != 1 || response.Page != tt.page {
				t.Errorf("unexpected response %+v", response)
			}
		})
	}
}

func TestGetProduct(t *testing.T) {
	svc := newFakeProductService()
	product := svc.add(2)
	router := newProductRouter(svc)

	w := serve(router, http.MethodGet, "/api/products/"+product.ID.String())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got domain.ProductWithImages
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if got.ID != product.ID || len(got.Images) != 2 || !got.Images[0].IsMain {
		t.Errorf("unexpected product %+v", got)
	}

	if w := serve(router, http.MethodGet, "/api/products/not-a-uuid"); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if w := serve(router, http.MethodGet, "/api/products/"+uuid.NewString()); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestSetMainImage(t *testing.T) {
	svc := newFakeProductService()
	product := svc.add(3)
	router := newProductRouter(svc)
	target := product.Images[2]

	w := serve(router, http.MethodPut, "/api/admin/products/"+product.ID.String()+"/images/"+target.ID.String()+"/main")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	mains := 0
	for _, image := range product.Images {
		if image.IsMain {
			mains++
			if image.ID != target.ID {
				t.Errorf("wrong image marked main")
			}
		}
	}
	if mains != 1 {
		t.Errorf("expected exactly one main image, got %d", mains)
	}

	w = serve(router, http.MethodPut, "/api/admin/products/"+product.ID.String()+"/images/"+uuid.NewString()+"/main")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown image, got %d", w.Code)
	}
}

func TestDeleteImage(t *testing.T) {
	svc := newFakeProductService()
	product := svc.add(2)
	router := newProductRouter(svc)
	path := "/api/admin/products/" + product.ID.String() + "/images/" + product.Images[0].ID.String()

	if w := serve(router, http.MethodDelete, path); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if len(product.Images) != 1 {
		t.Errorf("expected one remaining image, got %d", len(product.Images))
	}
	if w := serve(router, http.MethodDelete, path); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", w.Code)
	}
	if w := serve(router, http.MethodDelete, "/api/admin/products/"+product.ID.String()+"/images/bad"); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed image id, got %d", w.Code)
	}
}
