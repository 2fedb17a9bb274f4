package product

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type mockProductRepo struct {
	byID    map[string]Product
	saveErr error
}

func (m *mockProductRepo) List(_ context.Context) ([]Product, error) {
	out := make([]Product, 0, len(m.byID))
	for _, p := range m.byID {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, _ []string) ([]Product, error) {
	return nil, nil
}

func (m *mockProductRepo) Save(_ context.Context, p *Product) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.byID[p.ID] = *p
	return nil
}

func (m *mockProductRepo) Delete(_ context.Context, id string) error {
	delete(m.byID, id)
	return nil
}

func TestReprice(t *testing.T) {
	p := Product{Price: d("199.99")}
	p.Reprice(d("20.50"))
	assert.True(t, d("20.50").Equal(p.Discount))
	assert.True(t, d("179.49").Equal(p.SpecialPrice))
}

func TestService_Create(t *testing.T) {
	tests := []struct {
		name        string
		in          Product
		wantSpecial string
		wantErr     error
	}{
		{
			name:        "derives special price",
			in:          Product{Name: "Shirt", Price: d("100"), Discount: d("15")},
			wantSpecial: "85",
		},
		{
			name:        "no discount",
			in:          Product{Name: "Jeans", Price: d("250.50")},
			wantSpecial: "250.50",
		},
		{
			name:        "ignores coupon links from input",
			in:          Product{Name: "Socks", Price: d("10"), CouponIDs: []string{"c1"}},
			wantSpecial: "10",
		},
		{
			name:    "negative price",
			in:      Product{Name: "Bad", Price: d("-1")},
			wantErr: ErrInvalidPrice,
		},
		{
			name:    "negative discount",
			in:      Product{Name: "Bad", Price: d("10"), Discount: d("-1")},
			wantErr: ErrInvalidPrice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockProductRepo{byID: make(map[string]Product)}
			svc := NewService(repo)

			got, err := svc.Create(context.Background(), tt.in)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, repo.byID)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, got.ID)
			assert.Empty(t, got.CouponIDs)
			assert.True(t, d(tt.wantSpecial).Equal(got.SpecialPrice), "want %s, got %s", tt.wantSpecial, got.SpecialPrice)

			stored, err := svc.Get(context.Background(), got.ID)
			require.NoError(t, err)
			assert.Equal(t, got.Name, stored.Name)
		})
	}
}

func TestService_CreateKeepsGivenID(t *testing.T) {
	repo := &mockProductRepo{byID: make(map[string]Product)}
	got, err := NewService(repo).Create(context.Background(), Product{ID: "p1", Price: d("1")})
	require.NoError(t, err)
	assert.Equal(t, "p1", got.ID)
}

func TestService_CreateSaveError(t *testing.T) {
	boom := errors.New("disk full")
	repo := &mockProductRepo{byID: make(map[string]Product), saveErr: boom}

	_, err := NewService(repo).Create(context.Background(), Product{Price: d("1")})
	require.ErrorIs(t, err, boom)
}

func TestService_GetNotFound(t *testing.T) {
	svc := NewService(&mockProductRepo{byID: make(map[string]Product)})
	_, err := svc.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}
