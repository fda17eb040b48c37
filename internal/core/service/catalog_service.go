package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rl1809/order-desk/internal/core/domain"
	"github.com/rl1809/order-desk/internal/port"
)

var catalogRoles = []domain.Role{domain.RoleWarehouseManager, domain.RoleAdmin}

// CatalogService maintains products, customers and suppliers. It enforces
// uniqueness only; listing screens are out of its scope.
type CatalogService struct {
	store port.Store
	opts  options
}

func NewCatalogService(store port.Store, opts ...Option) *CatalogService {
	return &CatalogService{store: store, opts: newOptions(opts)}
}

type CreateProductInput struct {
	Code         string
	Name         string
	UnitPrice    decimal.Decimal
	OpeningStock int
}

// CreateProduct records any opening stock as a receive row so product stock
// always equals the sum of its ledger.
func (s *CatalogService) CreateProduct(ctx context.Context, actor domain.Actor, in CreateProductInput) (domain.Product, error) {
	if err := Authorize(actor, "manage products", catalogRoles...); err != nil {
		return domain.Product{}, err
	}
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	if in.Code == "" || in.Name == "" {
		return domain.Product{}, domain.InvalidInput("product code and name are required")
	}
	if in.UnitPrice.IsNegative() {
		return domain.Product{}, domain.InvalidInput("unit price must not be negative")
	}
	if in.OpeningStock < 0 {
		return domain.Product{}, domain.InvalidInput("opening stock must not be negative")
	}

	now := s.opts.clock()
	p := domain.Product{
		ID:            s.opts.newID(),
		Code:          in.Code,
		Name:          in.Name,
		UnitPrice:     in.UnitPrice,
		StockQuantity: in.OpeningStock,
		Status:        domain.ProductStatusActive,
		CreatedBy:     actor.ID,
		UpdatedBy:     actor.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo port.Repository) error {
		existing, err := repo.GetProductByCodeForUpdate(ctx, p.Code)
		if err != nil {
			return err
		}
		if existing != nil {
			return &domain.UniquenessError{Field: "product code", Value: p.Code}
		}
		if err := repo.CreateProduct(ctx, p); err != nil {
			return err
		}
		if p.StockQuantity == 0 {
			return nil
		}
		return repo.AppendTransaction(ctx, domain.InventoryTransaction{
			ID:              s.opts.newID(),
			ProductID:       p.ID,
			Type:            domain.TxnReceive,
			Quantity:        p.StockQuantity,
			Notes:           "Opening stock",
			PerformedBy:     actor.ID,
			PerformedByName: actor.Name,
			CreatedAt:       now,
		})
	})
	if err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

type UpdateProductInput struct {
	Code      *string
	Name      *string
	UnitPrice *decimal.Decimal
	Status    *domain.ProductStatus
}

// UpdateProduct never touches stock; stock only moves through the ledger.
func (s *CatalogService) UpdateProduct(ctx context.Context, actor domain.Actor, productID string, in UpdateProductInput) (domain.Product, error) {
	if err := Authorize(actor, "manage products", catalogRoles...); err != nil {
		return domain.Product{}, err
	}
	if in.Status != nil && *in.Status != domain.ProductStatusActive && *in.Status != domain.ProductStatusInactive {
		return domain.Product{}, domain.InvalidInput("unknown product status %q", *in.Status)
	}
	if in.UnitPrice != nil && in.UnitPrice.IsNegative() {
		return domain.Product{}, domain.InvalidInput("unit price must not be negative")
	}

	var product domain.Product
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo port.Repository) error {
		p, err := repo.GetProductForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if p == nil {
			return &domain.NotFoundError{Entity: "product", Ref: productID}
		}

		if in.Code != nil {
			code := strings.TrimSpace(*in.Code)
			if code == "" {
				return domain.InvalidInput("product code must not be empty")
			}
			if code != p.Code {
				other, err := repo.GetProductByCodeForUpdate(ctx, code)
				if err != nil {
					return err
				}
				if other != nil {
					return &domain.UniquenessError{Field: "product code", Value: code}
				}
				p.Code = code
			}
		}
		if in.Name != nil {
			if name := strings.TrimSpace(*in.Name); name != "" {
				p.Name = name
			}
		}
		if in.UnitPrice != nil {
			p.UnitPrice = *in.UnitPrice
		}
		if in.Status != nil {
			p.Status = *in.Status
		}
		p.UpdatedBy = actor.ID
		p.UpdatedAt = s.opts.clock()
		if err := repo.UpdateProduct(ctx, *p); err != nil {
			return err
		}
		product = *p
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

// ListActiveProducts is open to every role.
func (s *CatalogService) ListActiveProducts(ctx context.Context, actor domain.Actor) ([]domain.Product, error) {
	var out []domain.Product
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo port.Repository) error {
		var err error
		out, err = repo.ListProducts(ctx, domain.ProductStatusActive)
		return err
	})
	return out, err
}

type CreatePartyInput struct {
	CompanyName     string
	TaxCode         string
	Address         string
	ShippingAddress string
	Region          string
	ContactName     string
	ContactPhone    string
}

func (in CreatePartyInput) validate() error {
	if strings.TrimSpace(in.CompanyName) == "" {
		return domain.InvalidInput("company name is required")
	}
	if strings.TrimSpace(in.TaxCode) == "" {
		return domain.InvalidInput("tax code is required")
	}
	return nil
}

func (s *CatalogService) CreateCustomer(ctx context.Context, actor domain.Actor, in CreatePartyInput) (domain.Customer, error) {
	if err := Authorize(actor, "manage customers", domain.RoleSales, domain.RoleAdmin); err != nil {
		return domain.Customer{}, err
	}
	if err := in.validate(); err != nil {
		return domain.Customer{}, err
	}

	c := domain.Customer{
		ID:              s.opts.newID(),
		CompanyName:     strings.TrimSpace(in.CompanyName),
		TaxCode:         strings.TrimSpace(in.TaxCode),
		Address:         in.Address,
		ShippingAddress: in.ShippingAddress,
		Region:          in.Region,
		Status:          domain.PartyStatusActive,
		CreatedBy:       actor.ID,
		CreatedAt:       s.opts.clock(),
	}
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo port.Repository) error {
		existing, err := repo.GetCustomerByTaxCode(ctx, c.TaxCode)
		if err != nil {
			return err
		}
		if existing != nil {
			return &domain.UniquenessError{Field: "customer tax code", Value: c.TaxCode}
		}
		return repo.CreateCustomer(ctx, c)
	})
	if err != nil {
		return domain.Customer{}, err
	}
	return c, nil
}

func (s *CatalogService) CreateSupplier(ctx context.Context, actor domain.Actor, in CreatePartyInput) (domain.Supplier, error) {
	if err := Authorize(actor, "manage suppliers", domain.RoleAdmin); err != nil {
		return domain.Supplier{}, err
	}
	if err := in.validate(); err != nil {
		return domain.Supplier{}, err
	}

	sup := domain.Supplier{
		ID:           s.opts.newID(),
		CompanyName:  strings.TrimSpace(in.CompanyName),
		TaxCode:      strings.TrimSpace(in.TaxCode),
		Address:      in.Address,
		ContactName:  in.ContactName,
		ContactPhone: in.ContactPhone,
		Status:       domain.PartyStatusActive,
		CreatedBy:    actor.ID,
		CreatedAt:    s.opts.clock(),
	}
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo port.Repository) error {
		existing, err := repo.GetSupplierByTaxCode(ctx, sup.TaxCode)
		if err != nil {
			return err
		}
		if existing != nil {
			return &domain.UniquenessError{Field: "supplier tax code", Value: sup.TaxCode}
		}
		return repo.CreateSupplier(ctx, sup)
	})
	if err != nil {
		return domain.Supplier{}, err
	}
	return sup, nil
}
