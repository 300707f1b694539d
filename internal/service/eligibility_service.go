package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dojoclub/points-api/internal/models"
	appErrors "github.com/dojoclub/points-api/pkg/errors"
)

type eligibilityCatalogRepository interface {
	FindByKey(ctx context.Context, itemType models.ItemType, itemKey string) (*models.CatalogItem, error)
	ListByType(ctx context.Context, itemType models.ItemType) ([]models.CatalogItem, error)
}

type eligibilityUnlockRepository interface {
	Exists(ctx context.Context, studentID string, itemType models.ItemType, itemKey string) (bool, error)
	Insert(ctx context.Context, unlock *models.StudentCustomUnlock) error
}

type eligibilityCriteriaRepository interface {
	ItemCriterionIDs(ctx context.Context, itemType models.ItemType, itemKey string) ([]string, error)
	FulfilledCriterionIDs(ctx context.Context, studentID string) ([]string, error)
}

type eligibilityLoadoutRepository interface {
	Get(ctx context.Context, studentID string) ([]models.LoadoutSlot, error)
	Upsert(ctx context.Context, slot *models.LoadoutSlot) error
}

type eligibilityStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type eligibilityLevelResolver interface {
	EffectiveLevel(ctx context.Context, lifetimePoints int) (int, error)
}

type snapshotAppender interface {
	AppendAndRecompute(ctx context.Context, entry *models.LedgerEntry) (*AppendResult, error)
	Snapshot(ctx context.Context, studentID string) (*models.StudentSnapshot, error)
}

// PurchaseResult reports the outcome of a catalog purchase.
type PurchaseResult struct {
	Unlocked        bool                    `json:"unlocked"`
	AlreadyUnlocked bool                    `json:"already_unlocked"`
	Snapshot        *models.StudentSnapshot `json:"snapshot"`
	Warnings        []string                `json:"-"`
}

// EligibilityService resolves whether a student may use, buy or equip a
// cosmetic catalog item, and owns the purchase and equip flows.
type EligibilityService struct {
	catalog  eligibilityCatalogRepository
	unlocks  eligibilityUnlockRepository
	criteria eligibilityCriteriaRepository
	loadouts eligibilityLoadoutRepository
	students eligibilityStudentRepository
	levels   eligibilityLevelResolver
	ledger   snapshotAppender
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewEligibilityService constructs the service.
func NewEligibilityService(
	catalog eligibilityCatalogRepository,
	unlocks eligibilityUnlockRepository,
	criteria eligibilityCriteriaRepository,
	loadouts eligibilityLoadoutRepository,
	students eligibilityStudentRepository,
	levels eligibilityLevelResolver,
	ledger snapshotAppender,
	metrics *MetricsService,
	logger *zap.Logger,
) *EligibilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EligibilityService{
		catalog:  catalog,
		unlocks:  unlocks,
		criteria: criteria,
		loadouts: loadouts,
		students: students,
		levels:   levels,
		ledger:   ledger,
		metrics:  metrics,
		logger:   logger,
	}
}

func (s *EligibilityService) loadStudent(ctx context.Context, studentID string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// effectiveLevel derives the student's level from lifetime points. The stored
// level column lags behind incremental fallback writes and threshold changes.
func (s *EligibilityService) effectiveLevel(ctx context.Context, student *models.Student) (int, error) {
	level, err := s.levels.EffectiveLevel(ctx, student.LifetimePoints)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve level")
	}
	return level, nil
}

func (s *EligibilityService) loadItem(ctx context.Context, itemType models.ItemType, itemKey string) (*models.CatalogItem, error) {
	if !itemType.Valid() {
		return nil, appErrors.ErrValidation
	}
	item, err := s.catalog.FindByKey(ctx, itemType, itemKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load catalog item")
	}
	return item, nil
}

// criteriaFulfilled reports whether the item links at least one criterion
// the student has satisfied.
func (s *EligibilityService) criteriaFulfilled(ctx context.Context, student *models.Student, item *models.CatalogItem) (bool, error) {
	required, err := s.criteria.ItemCriterionIDs(ctx, item.ItemType, item.ItemKey)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load item criteria")
	}
	if len(required) == 0 {
		return false, nil
	}
	fulfilled, err := s.criteria.FulfilledCriterionIDs(ctx, student.ID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fulfillments")
	}
	have := make(map[string]struct{}, len(fulfilled))
	for _, id := range fulfilled {
		have[id] = struct{}{}
	}
	for _, id := range required {
		if _, ok := have[id]; ok {
			return true, nil
		}
	}
	return false, nil
}

// resolveState computes the eligibility state for a loaded student and item.
// Competition-gated items lock for non-team students regardless of any other
// unlock path. Limited-event items never unlock by level or points alone.
func (s *EligibilityService) resolveState(ctx context.Context, student *models.Student, level int, item *models.CatalogItem) (models.EligibilityState, error) {
	if item.CompetitionOnly && !student.IsCompetitionTeam {
		return models.Locked, nil
	}

	owned, err := s.unlocks.Exists(ctx, student.ID, item.ItemType, item.ItemKey)
	if err != nil {
		return models.Locked, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check unlock")
	}
	if owned {
		return models.UnlockedByPurchase, nil
	}

	byCriteria, err := s.criteriaFulfilled(ctx, student, item)
	if err != nil {
		return models.Locked, err
	}
	if byCriteria {
		return models.UnlockedByCriteria, nil
	}

	if item.LimitedEventOnly {
		return models.Locked, nil
	}

	if level >= item.UnlockLevel && item.UnlockPoints == 0 {
		return models.UnlockedDefault, nil
	}

	return models.Locked, nil
}

// Status resolves the eligibility state for one (student, item) pair.
func (s *EligibilityService) Status(ctx context.Context, studentID string, itemType models.ItemType, itemKey string) (models.EligibilityState, error) {
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return models.Locked, err
	}
	item, err := s.loadItem(ctx, itemType, itemKey)
	if err != nil {
		return models.Locked, err
	}
	level, err := s.effectiveLevel(ctx, student)
	if err != nil {
		return models.Locked, err
	}
	return s.resolveState(ctx, student, level, item)
}

// CatalogView lists all items of a type annotated with the student's
// eligibility state.
func (s *EligibilityService) CatalogView(ctx context.Context, studentID string, itemType models.ItemType) ([]models.CatalogItemView, error) {
	if !itemType.Valid() {
		return nil, appErrors.ErrValidation
	}
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	items, err := s.catalog.ListByType(ctx, itemType)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list catalog")
	}
	level, err := s.effectiveLevel(ctx, student)
	if err != nil {
		return nil, err
	}
	views := make([]models.CatalogItemView, 0, len(items))
	for i := range items {
		state, err := s.resolveState(ctx, student, level, &items[i])
		if err != nil {
			return nil, err
		}
		views = append(views, models.CatalogItemView{CatalogItem: items[i], Eligibility: state})
	}
	return views, nil
}

// debitUnlock appends the purchase debit. The deterministic source id makes a
// re-append collapse onto the existing entry.
func (s *EligibilityService) debitUnlock(ctx context.Context, studentID string, item *models.CatalogItem, actor string) (*AppendResult, error) {
	sourceType := "item_unlock"
	sourceID := fmt.Sprintf("%s:%s:%s", studentID, item.ItemType, item.ItemKey)
	return s.ledger.AppendAndRecompute(ctx, &models.LedgerEntry{
		StudentID:  studentID,
		Points:     -item.UnlockPoints,
		Category:   item.ItemType.UnlockCategory(),
		SourceType: &sourceType,
		SourceID:   &sourceID,
		Note:       fmt.Sprintf("unlocked %s %q", item.ItemType, item.ItemKey),
		CreatedBy:  actor,
	})
}

// Purchase unlocks a catalog item for a student, debiting unlock_points when
// the item has a cost. Buying an item the student already owns is a no-op
// success. A fulfilled criterion bypasses the level gate.
func (s *EligibilityService) Purchase(ctx context.Context, studentID string, itemType models.ItemType, itemKey, actor string) (*PurchaseResult, error) {
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	item, err := s.loadItem(ctx, itemType, itemKey)
	if err != nil {
		return nil, err
	}

	owned, err := s.unlocks.Exists(ctx, studentID, itemType, itemKey)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check unlock")
	}
	if owned {
		result := &PurchaseResult{Unlocked: true, AlreadyUnlocked: true}
		if item.UnlockPoints > 0 {
			// A retry that crashed between the unlock insert and the debit
			// lands here; the debit must still settle.
			appendResult, err := s.debitUnlock(ctx, studentID, item, actor)
			if err != nil {
				return nil, err
			}
			result.Snapshot = appendResult.Snapshot
			result.Warnings = appendResult.Warnings
		} else {
			snapshot, err := s.ledger.Snapshot(ctx, studentID)
			if err != nil {
				return nil, err
			}
			result.Snapshot = snapshot
		}
		return result, nil
	}

	if !item.Enabled {
		return nil, appErrors.ErrItemDisabled
	}
	if item.CompetitionOnly && !student.IsCompetitionTeam {
		return nil, appErrors.ErrLocked
	}

	byCriteria, err := s.criteriaFulfilled(ctx, student, item)
	if err != nil {
		return nil, err
	}
	if item.LimitedEventOnly && !byCriteria {
		return nil, appErrors.ErrRequiresEligibility
	}
	if !byCriteria {
		level, err := s.effectiveLevel(ctx, student)
		if err != nil {
			return nil, err
		}
		if level < item.UnlockLevel {
			return nil, appErrors.ErrInsufficientLevel
		}
	}
	if item.UnlockPoints > 0 && student.PointsBalance < item.UnlockPoints {
		return nil, appErrors.ErrInsufficientPoints
	}

	unlock := &models.StudentCustomUnlock{
		StudentID: studentID,
		ItemType:  itemType,
		ItemKey:   itemKey,
	}
	if err := s.unlocks.Insert(ctx, unlock); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record unlock")
	}

	result := &PurchaseResult{Unlocked: true}

	if item.UnlockPoints > 0 {
		appendResult, err := s.debitUnlock(ctx, studentID, item, actor)
		if err != nil {
			return nil, err
		}
		result.Snapshot = appendResult.Snapshot
		result.Warnings = appendResult.Warnings
	} else {
		snapshot, err := s.ledger.Snapshot(ctx, studentID)
		if err != nil {
			return nil, err
		}
		result.Snapshot = snapshot
	}

	s.metrics.RecordPurchase()
	s.logger.Info("catalog item purchased",
		zap.String("student_id", studentID),
		zap.String("item_type", string(itemType)),
		zap.String("item_key", itemKey),
		zap.Int("cost", item.UnlockPoints))

	return result, nil
}

// Equip places an unlocked item into its loadout slot. Locked items reject.
func (s *EligibilityService) Equip(ctx context.Context, studentID string, itemType models.ItemType, itemKey string) error {
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return err
	}
	item, err := s.loadItem(ctx, itemType, itemKey)
	if err != nil {
		return err
	}
	if !item.Enabled {
		return appErrors.ErrItemDisabled
	}
	level, err := s.effectiveLevel(ctx, student)
	if err != nil {
		return err
	}
	state, err := s.resolveState(ctx, student, level, item)
	if err != nil {
		return err
	}
	if !state.Unlocked() {
		return appErrors.ErrLocked
	}
	slot := &models.LoadoutSlot{StudentID: studentID, Slot: itemType, ItemKey: itemKey}
	if err := s.loadouts.Upsert(ctx, slot); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to equip item")
	}
	return nil
}

// Loadout returns the student's equipped set, repairing slots whose items
// have since become ineligible. Repair happens lazily on read: the slot is
// reassigned to the type's fallback default, or cleared when none exists.
func (s *EligibilityService) Loadout(ctx context.Context, studentID string) (*models.Loadout, error) {
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	slots, err := s.loadouts.Get(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load loadout")
	}
	level, err := s.effectiveLevel(ctx, student)
	if err != nil {
		return nil, err
	}

	loadout := &models.Loadout{StudentID: studentID, Slots: make(map[models.ItemType]string, len(slots))}
	for _, slot := range slots {
		item, err := s.catalog.FindByKey(ctx, slot.Slot, slot.ItemKey)
		usable := false
		if err == nil && item.Enabled {
			state, stateErr := s.resolveState(ctx, student, level, item)
			if stateErr != nil {
				return nil, stateErr
			}
			usable = state.Unlocked()
		} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load equipped item")
		}

		if usable {
			loadout.Slots[slot.Slot] = slot.ItemKey
			continue
		}

		fallback, err := s.fallbackItem(ctx, student, level, slot.Slot)
		if err != nil {
			return nil, err
		}
		if fallback == "" {
			s.logger.Info("cleared ineligible loadout slot",
				zap.String("student_id", studentID), zap.String("slot", string(slot.Slot)))
			continue
		}
		if err := s.loadouts.Upsert(ctx, &models.LoadoutSlot{StudentID: studentID, Slot: slot.Slot, ItemKey: fallback}); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to repair loadout")
		}
		s.logger.Info("reassigned ineligible loadout slot",
			zap.String("student_id", studentID),
			zap.String("slot", string(slot.Slot)),
			zap.String("from", slot.ItemKey),
			zap.String("to", fallback))
		loadout.Slots[slot.Slot] = fallback
	}

	return loadout, nil
}

// fallbackItem picks the first enabled free item of the type the student
// qualifies for by level alone.
func (s *EligibilityService) fallbackItem(ctx context.Context, student *models.Student, level int, itemType models.ItemType) (string, error) {
	items, err := s.catalog.ListByType(ctx, itemType)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list catalog")
	}
	for _, item := range items {
		if !item.Enabled || item.LimitedEventOnly || item.UnlockPoints > 0 {
			continue
		}
		if item.CompetitionOnly && !student.IsCompetitionTeam {
			continue
		}
		if level >= item.UnlockLevel {
			return item.ItemKey, nil
		}
	}
	return "", nil
}
