package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Code        string             `bson:"code" json:"code"`
	Name        string             `bson:"name" json:"name"`
	Price       float64            `bson:"price" json:"price"`
	SaleEnabled bool               `bson:"saleEnabled" json:"saleEnabled"`
	SalePrice   float64            `bson:"salePrice" json:"salePrice"`
	IsOnSale    bool               `bson:"-" json:"isOnSale"`
	Category    string             `bson:"category,omitempty" json:"category,omitempty"`
	Sizes       StringList         `bson:"sizes" json:"sizes"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	ImageURL    string             `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	Stock       int                `bson:"stock" json:"stock"`
	InStock     bool               `bson:"-" json:"inStock"`
	IsActive    bool               `bson:"isActive" json:"isActive"`
	IsDeleted   bool               `bson:"isDeleted" json:"isDeleted,omitempty"`
	DeletedAt   *time.Time         `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// IsProductOnSale reports whether the sale price actually undercuts the list price.
func IsProductOnSale(price float64, saleEnabled bool, salePrice float64) bool {
	return saleEnabled && salePrice > 0 && salePrice < price
}

// EffectivePrice is the unit price a customer pays right now.
func (p Product) EffectivePrice() float64 {
	if IsProductOnSale(p.Price, p.SaleEnabled, p.SalePrice) {
		return p.SalePrice
	}
	return p.Price
}

// Decorate fills the derived json-only fields.
func (p *Product) Decorate() {
	p.InStock = p.Stock > 0
	p.IsOnSale = IsProductOnSale(p.Price, p.SaleEnabled, p.SalePrice)
}

// HasSize reports whether size is offered. Products without a size list
// accept any (or no) size.
func (p Product) HasSize(size string) bool {
	if len(p.Sizes) == 0 {
		return true
	}
	for _, s := range p.Sizes {
		if s == size {
			return true
		}
	}
	return false
}
