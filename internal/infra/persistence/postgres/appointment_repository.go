package postgres

import (
	"context"
	"time"

	"clinicbook/internal/domain/entity"
	domainerrors "clinicbook/internal/domain/errors"
	"clinicbook/internal/domain/repository"
	"clinicbook/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// appointmentRepository implements the repository.AppointmentRepository interface.
type appointmentRepository struct {
	db *gorm.DB
}

// NewAppointmentRepository is the constructor for appointmentRepository.
func NewAppointmentRepository(db *gorm.DB) repository.AppointmentRepository {
	return &appointmentRepository{
		db: db,
	}
}

// CreateAppointment persists a new appointment.
func (repo *appointmentRepository) CreateAppointment(ctx context.Context, appointment *entity.Appointment) error {
	appointmentM := fromAppointmentDomain(appointment)

	if err := repo.db.WithContext(ctx).Create(appointmentM).Error; err != nil {
		if isForeignKeyConstraintViolation(err) {
			return repository.ErrProviderNotFound
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrValidation.WrapMessage("missing required appointment information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create appointment")
	}

	// Update the entity with generated values
	appointment.ID = appointmentM.ID
	appointment.CreatedAt = appointmentM.CreatedAt
	appointment.UpdatedAt = appointmentM.UpdatedAt

	return nil
}

// FindAppointmentByID retrieves an appointment by its unique ID.
func (repo *appointmentRepository) FindAppointmentByID(ctx context.Context, id uuid.UUID) (*entity.Appointment, error) {
	var appointmentM model.AppointmentModel

	if err := repo.db.WithContext(ctx).
		Where("id = ?", id).
		First(&appointmentM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrAppointmentNotFound
		}

		return nil, errors.Wrap(err, "failed to find appointment by ID")
	}

	return toAppointmentDomain(&appointmentM), nil
}

// FindAppointmentByIDForUpdate retrieves an appointment with a row-level lock.
// Only meaningful inside TransactionManager.Execute.
func (repo *appointmentRepository) FindAppointmentByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Appointment, error) {
	var appointmentM model.AppointmentModel

	if err := repo.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&appointmentM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrAppointmentNotFound
		}

		return nil, errors.Wrap(err, "failed to lock appointment by ID")
	}

	return toAppointmentDomain(&appointmentM), nil
}

// FindScheduledOverlapping retrieves all scheduled appointments for the
// provider overlapping the half-open range [start, end), ordered by start
// time. Half-open semantics make back-to-back appointments non-conflicting.
func (repo *appointmentRepository) FindScheduledOverlapping(ctx context.Context, providerID uuid.UUID, start, end time.Time) ([]*entity.Appointment, error) {
	var appointmentModels []*model.AppointmentModel

	if err := repo.db.WithContext(ctx).
		Where("provider_id = ? AND status = ? AND start_time < ? AND end_time > ?",
			providerID, string(entity.StatusScheduled), end, start).
		Order("start_time ASC").
		Find(&appointmentModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find overlapping appointments")
	}

	return toAppointmentDomainSlice(appointmentModels), nil
}

// FindByProvider retrieves a provider's appointments matching the filter,
// ordered by start time.
func (repo *appointmentRepository) FindByProvider(ctx context.Context, providerID uuid.UUID, filter repository.AppointmentFilter) ([]*entity.Appointment, error) {
	query := repo.db.WithContext(ctx).
		Where("provider_id = ?", providerID)

	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.Day != nil {
		dayStart := time.Date(filter.Day.Year(), filter.Day.Month(), filter.Day.Day(), 0, 0, 0, 0, filter.Day.Location())
		query = query.Where("start_time >= ? AND start_time < ?", dayStart, dayStart.AddDate(0, 0, 1))
	}

	var appointmentModels []*model.AppointmentModel

	if err := query.
		Order("start_time ASC").
		Find(&appointmentModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find appointments by provider")
	}

	return toAppointmentDomainSlice(appointmentModels), nil
}

// UpdateStatus sets the lifecycle state of an appointment.
func (repo *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.AppointmentStatus) error {
	result := repo.db.WithContext(ctx).
		Model(&model.AppointmentModel{}).
		Where("id = ?", id).
		Update("status", string(status))

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update appointment status")
	}

	if result.RowsAffected == 0 {
		return repository.ErrAppointmentNotFound
	}

	return nil
}

// UpdateExternalEventID records the mirrored event ID after a successful
// external calendar write.
func (repo *appointmentRepository) UpdateExternalEventID(ctx context.Context, id uuid.UUID, externalEventID string) error {
	result := repo.db.WithContext(ctx).
		Model(&model.AppointmentModel{}).
		Where("id = ?", id).
		Update("external_event_id", externalEventID)

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update external event ID")
	}

	if result.RowsAffected == 0 {
		return repository.ErrAppointmentNotFound
	}

	return nil
}

// --- Mapper Functions ---

// toAppointmentDomain converts a GORM AppointmentModel to a domain Appointment entity.
func toAppointmentDomain(data *model.AppointmentModel) *entity.Appointment {
	if data == nil {
		return nil
	}

	return &entity.Appointment{
		ID:              data.ID,
		ProviderID:      data.ProviderID,
		PatientName:     data.PatientName,
		PatientPhone:    data.PatientPhone,
		Notes:           data.Notes,
		StartTime:       data.StartTime.UTC(),
		EndTime:         data.EndTime.UTC(),
		Status:          entity.AppointmentStatus(data.Status),
		ExternalEventID: data.ExternalEventID,
		CreatedAt:       data.CreatedAt,
		UpdatedAt:       data.UpdatedAt,
	}
}

func toAppointmentDomainSlice(models []*model.AppointmentModel) []*entity.Appointment {
	appointments := make([]*entity.Appointment, 0, len(models))
	for _, appointmentM := range models {
		appointments = append(appointments, toAppointmentDomain(appointmentM))
	}

	return appointments
}

// fromAppointmentDomain converts a domain Appointment entity to a GORM AppointmentModel.
func fromAppointmentDomain(data *entity.Appointment) *model.AppointmentModel {
	if data == nil {
		return nil
	}

	return &model.AppointmentModel{
		ID:              data.ID,
		ProviderID:      data.ProviderID,
		PatientName:     data.PatientName,
		PatientPhone:    data.PatientPhone,
		Notes:           data.Notes,
		StartTime:       data.StartTime.UTC(),
		EndTime:         data.EndTime.UTC(),
		Status:          string(data.Status),
		ExternalEventID: data.ExternalEventID,
		CreatedAt:       data.CreatedAt,
		UpdatedAt:       data.UpdatedAt,
	}
}
