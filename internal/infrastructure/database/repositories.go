package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Markwood23/plaen-sub000/internal/adapter/repository"
	domainRepo "github.com/Markwood23/plaen-sub000/internal/domain/repository"
)

// Repositories holds all repository instances
type Repositories struct {
	Receipt domainRepo.ReceiptRepository
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Receipt: repository.NewReceiptRepository(db, logger),
	}
}
