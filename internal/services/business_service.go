package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"wastenot/internal/domain"
	"wastenot/internal/repos"
)

type BusinessService struct {
	DB         *sqlx.DB
	Businesses *repos.BusinessRepo
}

func NewBusinessService(db *sqlx.DB, businesses *repos.BusinessRepo) *BusinessService {
	return &BusinessService{DB: db, Businesses: businesses}
}

type NewBusiness struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Address     string   `json:"address"`
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
	Preferences []string `json:"preferences"`
}

func (s *BusinessService) Create(ctx context.Context, in NewBusiness) (domain.LocalBusiness, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.LocalBusiness{}, domain.InvalidInput("name", "is required")
	}
	if in.Lat < -90 || in.Lat > 90 {
		return domain.LocalBusiness{}, domain.InvalidInput("lat", "must be between -90 and 90")
	}
	if in.Lng < -180 || in.Lng > 180 {
		return domain.LocalBusiness{}, domain.InvalidInput("lng", "must be between -180 and 180")
	}
	if err := repos.Ping(ctx, s.DB); err != nil {
		return domain.LocalBusiness{}, err
	}
	prefs := in.Preferences
	if prefs == nil {
		prefs = []string{}
	}
	b := domain.LocalBusiness{
		BusinessID:  uuid.NewString(),
		Name:        name,
		Type:        strings.TrimSpace(in.Type),
		Address:     strings.TrimSpace(in.Address),
		Lat:         in.Lat,
		Lng:         in.Lng,
		Preferences: prefs,
	}
	if err := s.Businesses.Create(ctx, b); err != nil {
		return domain.LocalBusiness{}, err
	}
	return b, nil
}

func (s *BusinessService) List(ctx context.Context) ([]domain.LocalBusiness, error) {
	if err := repos.Ping(ctx, s.DB); err != nil {
		return nil, err
	}
	return s.Businesses.List(ctx)
}
