package services

import (
	"errors"

	"github.com/broker-one/core/internal/database/models"
	"gorm.io/gorm"
)

var (
	// ErrDealNotFound indicates the deal was not found
	ErrDealNotFound = errors.New("deal not found")
	// ErrEmailNotFound indicates the email was not found
	ErrEmailNotFound = errors.New("email not found")
)

// DealService handles deal, space, and email-thread lookups
type DealService struct {
	db *gorm.DB
}

// NewDealService creates a new DealService instance
func NewDealService(db *gorm.DB) *DealService {
	return &DealService{db: db}
}

// GetDeal retrieves a deal by ID
func (s *DealService) GetDeal(dealID uint) (*models.Deal, error) {
	var deal models.Deal
	if err := s.db.First(&deal, dealID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDealNotFound
		}
		return nil, err
	}
	return &deal, nil
}

// ListDeals returns all deals ordered by creation time
func (s *DealService) ListDeals() ([]models.Deal, error) {
	var deals []models.Deal
	if err := s.db.Order("created_at DESC").Find(&deals).Error; err != nil {
		return nil, err
	}
	return deals, nil
}

// GetDealSpaces returns the candidate spaces linked to a deal
func (s *DealService) GetDealSpaces(dealID uint) ([]models.Space, error) {
	var spaces []models.Space
	err := s.db.
		Joins("INNER JOIN deal_spaces ON deal_spaces.space_id = spaces.id").
		Where("deal_spaces.deal_id = ?", dealID).
		Order("spaces.id ASC").
		Find(&spaces).Error
	if err != nil {
		return nil, err
	}
	return spaces, nil
}

// GetEmailThread returns a deal's emails in chronological order
func (s *DealService) GetEmailThread(dealID uint) ([]models.Email, error) {
	var emails []models.Email
	if err := s.db.Where("deal_id = ?", dealID).Order("sent_at ASC").Find(&emails).Error; err != nil {
		return nil, err
	}
	return emails, nil
}

// GetEmail retrieves a single email by ID
func (s *DealService) GetEmail(emailID uint) (*models.Email, error) {
	var email models.Email
	if err := s.db.First(&email, emailID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmailNotFound
		}
		return nil, err
	}
	return &email, nil
}
