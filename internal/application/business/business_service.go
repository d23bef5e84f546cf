package business

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tallybook/backend/internal/domain/business"
	"github.com/tallybook/backend/internal/domain/shared"
	"github.com/tallybook/backend/internal/domain/shared/valueobject"
)

// TokenIssuer mints the API token handed out on registration. Implemented
// by the JWT service in infrastructure/auth.
type TokenIssuer interface {
	Issue(businessID uuid.UUID) (token string, expiresAt time.Time, err error)
}

// BusinessService provides application-level business profile operations
type BusinessService struct {
	businessRepo   business.BusinessRepository
	tokenIssuer    TokenIssuer
	eventPublisher shared.EventPublisher
}

// NewBusinessService creates a new BusinessService
func NewBusinessService(businessRepo business.BusinessRepository, tokenIssuer TokenIssuer) *BusinessService {
	return &BusinessService{
		businessRepo: businessRepo,
		tokenIssuer:  tokenIssuer,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *BusinessService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// ===================== DTOs =====================

// RegisterBusinessRequest represents a request to register a business
type RegisterBusinessRequest struct {
	Name      string `json:"name" binding:"required"`
	Currency  string `json:"currency"`
	OwnerName string `json:"owner_name"`
	Phone     string `json:"phone"`
	Email     string `json:"email" binding:"omitempty,email"`
	Address   string `json:"address"`
}

// UpdateBusinessRequest represents a request to update a business profile.
// Storefront fields are optional; leaving them out keeps the current state.
type UpdateBusinessRequest struct {
	Name             string  `json:"name" binding:"required"`
	Currency         string  `json:"currency"`
	OwnerName        string  `json:"owner_name"`
	Phone            string  `json:"phone"`
	Email            string  `json:"email" binding:"omitempty,email"`
	Address          string  `json:"address"`
	LogoURL          string  `json:"logo_url"`
	StorefrontSlug   *string `json:"storefront_slug"`
	EnableStorefront *bool   `json:"enable_storefront"`
}

// BusinessResponse represents a business in API responses
type BusinessResponse struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	OwnerName         string    `json:"owner_name,omitempty"`
	Phone             string    `json:"phone,omitempty"`
	Email             string    `json:"email,omitempty"`
	Address           string    `json:"address,omitempty"`
	Currency          string    `json:"currency"`
	LogoURL           string    `json:"logo_url,omitempty"`
	Slug              string    `json:"slug,omitempty"`
	StorefrontEnabled bool      `json:"storefront_enabled"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// RegisterBusinessResponse carries the new business and its API token
type RegisterBusinessResponse struct {
	Business  BusinessResponse `json:"business"`
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
}

// ===================== Operations =====================

// Register creates a business and issues the API token its owner will use
// for every authenticated call
func (s *BusinessService) Register(ctx context.Context, req RegisterBusinessRequest) (*RegisterBusinessResponse, error) {
	biz, err := business.NewBusiness(req.Name, valueobject.Currency(req.Currency))
	if err != nil {
		return nil, err
	}

	if req.OwnerName != "" || req.Phone != "" || req.Email != "" {
		if err := biz.SetContact(req.OwnerName, req.Phone, req.Email); err != nil {
			return nil, err
		}
	}
	if req.Address != "" {
		if err := biz.SetAddress(req.Address); err != nil {
			return nil, err
		}
	}

	if err := s.businessRepo.Save(ctx, biz); err != nil {
		return nil, err
	}

	token, expiresAt, err := s.tokenIssuer.Issue(biz.ID)
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, biz)

	return &RegisterBusinessResponse{
		Business:  *toBusinessResponse(biz),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// GetProfile gets the business profile
func (s *BusinessService) GetProfile(ctx context.Context, businessID uuid.UUID) (*BusinessResponse, error) {
	biz, err := s.businessRepo.FindByID(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if biz == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Business not found")
	}
	return toBusinessResponse(biz), nil
}

// UpdateProfile updates the business profile, including the storefront
// settings when the request names them
func (s *BusinessService) UpdateProfile(ctx context.Context, businessID uuid.UUID, req UpdateBusinessRequest) (*BusinessResponse, error) {
	biz, err := s.businessRepo.FindByID(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if biz == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Business not found")
	}

	if err := biz.Update(req.Name); err != nil {
		return nil, err
	}
	if err := biz.SetContact(req.OwnerName, req.Phone, req.Email); err != nil {
		return nil, err
	}
	if err := biz.SetAddress(req.Address); err != nil {
		return nil, err
	}
	if req.LogoURL != "" {
		if err := biz.SetLogoURL(req.LogoURL); err != nil {
			return nil, err
		}
	}
	if req.Currency != "" && valueobject.Currency(req.Currency) != biz.Currency {
		if err := biz.SetCurrency(valueobject.Currency(req.Currency)); err != nil {
			return nil, err
		}
	}

	if err := s.applyStorefrontChange(ctx, biz, req); err != nil {
		return nil, err
	}

	if err := s.businessRepo.Save(ctx, biz); err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, biz)

	return toBusinessResponse(biz), nil
}

// GetBySlug resolves a business from its public storefront slug
func (s *BusinessService) GetBySlug(ctx context.Context, slug string) (*BusinessResponse, error) {
	biz, err := s.businessRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if biz == nil || !biz.HasStorefront() {
		return nil, shared.NewDomainError("NOT_FOUND", "Storefront not found")
	}
	return toBusinessResponse(biz), nil
}

func (s *BusinessService) applyStorefrontChange(ctx context.Context, biz *business.Business, req UpdateBusinessRequest) error {
	if req.EnableStorefront == nil {
		return nil
	}
	if !*req.EnableStorefront {
		biz.DisableStorefront()
		return nil
	}

	slug := biz.Slug
	if req.StorefrontSlug != nil {
		slug = strings.ToLower(*req.StorefrontSlug)
	}
	if slug != biz.Slug {
		taken, err := s.businessRepo.ExistsBySlug(ctx, slug)
		if err != nil {
			return err
		}
		if taken {
			return shared.NewDomainError("ALREADY_EXISTS", "Storefront slug is already taken")
		}
	}
	return biz.EnableStorefront(slug)
}

// publishDomainEvents publishes all domain events from the business
func (s *BusinessService) publishDomainEvents(ctx context.Context, biz *business.Business) {
	if s.eventPublisher == nil {
		return
	}
	events := biz.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
	biz.ClearDomainEvents()
}

func toBusinessResponse(biz *business.Business) *BusinessResponse {
	return &BusinessResponse{
		ID:                biz.ID,
		Name:              biz.Name,
		OwnerName:         biz.OwnerName,
		Phone:             biz.Phone,
		Email:             biz.Email,
		Address:           biz.Address,
		Currency:          string(biz.Currency),
		LogoURL:           biz.LogoURL,
		Slug:              biz.Slug,
		StorefrontEnabled: biz.StorefrontEnabled,
		CreatedAt:         biz.CreatedAt,
		UpdatedAt:         biz.UpdatedAt,
	}
}
