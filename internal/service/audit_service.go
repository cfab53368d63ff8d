package service

import (
	"go-doctor-scheduling/internal/domain/entity"
	"go-doctor-scheduling/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AuditService writes audit trail rows. Callers pass the transaction of the
// operation being audited so the row commits or rolls back with it.
type AuditService interface {
	LogCreate(tx *gorm.DB, actorID *uuid.UUID, action string, entityName string, entityID any, newValue any) error
	LogTransition(tx *gorm.DB, actorID *uuid.UUID, action string, entityName string, entityID any, oldStatus, newStatus string) error
}

type auditService struct {
	log       *logrus.Logger
	auditRepo repository.AuditLogRepository
}

func NewAuditService(log *logrus.Logger, auditRepo repository.AuditLogRepository) AuditService {
	return &auditService{
		log:       log,
		auditRepo: auditRepo,
	}
}

func (s *auditService) LogCreate(tx *gorm.DB, actorID *uuid.UUID, action string, entityName string, entityID any, newValue any) error {
	return s.write(tx, actorID, action, entity.JSON{
		"entity":    entityName,
		"entity_id": entityID,
		"new_value": newValue,
	})
}

// LogTransition records a status change from oldStatus to newStatus
func (s *auditService) LogTransition(tx *gorm.DB, actorID *uuid.UUID, action string, entityName string, entityID any, oldStatus, newStatus string) error {
	return s.write(tx, actorID, action, entity.JSON{
		"entity":     entityName,
		"entity_id":  entityID,
		"old_status": oldStatus,
		"new_status": newStatus,
	})
}

func (s *auditService) write(tx *gorm.DB, actorID *uuid.UUID, action string, metadata entity.JSON) error {
	auditLog := &entity.AuditLog{
		UserID:   actorID,
		Action:   action,
		Metadata: metadata,
	}

	if err := s.auditRepo.Create(tx, auditLog); err != nil {
		s.log.Warnf("Failed to create audit log %s: %+v", action, err)
		return err
	}

	return nil
}
