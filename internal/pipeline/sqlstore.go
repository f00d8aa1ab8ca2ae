package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/mzhuang1/chanyeops-sub000/internal/planning"
)

// runRecord is the persisted row for one run.
type runRecord struct {
	ID               string         `gorm:"column:id;primaryKey"`
	UserID           string         `gorm:"column:user_id;index"`
	Region           string         `gorm:"column:region;not null"`
	PlanType         string         `gorm:"column:plan_type;not null"`
	TemplateID       int            `gorm:"column:template_id;not null"`
	Status           string         `gorm:"column:status;not null;index"`
	Phase            string         `gorm:"column:phase"`
	Progress         int            `gorm:"column:progress;not null;default:0"`
	Title            string         `gorm:"column:title"`
	GeneratedContent string         `gorm:"column:generated_content"`
	Sections         datatypes.JSON `gorm:"column:sections"`
	Metadata         datatypes.JSON `gorm:"column:metadata"`
	ErrorMessage     string         `gorm:"column:error_message"`
	CreatedAt        time.Time      `gorm:"column:created_at;not null;index;autoCreateTime:false"`
	UpdatedAt        time.Time      `gorm:"column:updated_at;not null;index;autoUpdateTime:false"`
}

func (runRecord) TableName() string { return "planning_runs" }

// SQLStore persists runs with gorm on sqlite or postgres.
type SQLStore struct {
	db  *gorm.DB
	log *slog.Logger
}

// OpenSQLStore connects to driver ("sqlite" or "postgres") and migrates the
// runs table.
func OpenSQLStore(driver, dsn string, log *slog.Logger) (*SQLStore, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.AutoMigrate(&runRecord{}); err != nil {
		return nil, fmt.Errorf("migrate runs table: %w", err)
	}
	log.Info("run store ready", "driver", driver)
	return &SQLStore{db: db, log: log}, nil
}

func (s *SQLStore) Save(ctx context.Context, snap RunSnapshot) error {
	rec, err := toRecord(snap)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return fmt.Errorf("save run %s: %w", snap.ID, err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (RunSnapshot, error) {
	var rec runRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return RunSnapshot{}, ErrRunNotFound
	}
	if err != nil {
		return RunSnapshot{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return fromRecord(rec)
}

func (s *SQLStore) List(ctx context.Context, userID string) ([]RunSnapshot, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	var recs []runRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	out := make([]RunSnapshot, 0, len(recs))
	for _, rec := range recs {
		snap, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

func (s *SQLStore) Cleanup(ctx context.Context, cutoff time.Time) (int, error) {
	res := s.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?", []string{string(planning.StatusCompleted), string(planning.StatusFailed)}, cutoff.UTC()).
		Delete(&runRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("cleanup runs: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRecord(snap RunSnapshot) (runRecord, error) {
	if snap.Sections == nil {
		snap.Sections = []planning.GeneratedSection{}
	}
	sections, err := json.Marshal(snap.Sections)
	if err != nil {
		return runRecord{}, fmt.Errorf("marshal sections: %w", err)
	}
	rec := runRecord{
		ID:               snap.ID,
		UserID:           snap.UserID,
		Region:           snap.Region,
		PlanType:         snap.PlanType,
		TemplateID:       snap.TemplateID,
		Status:           string(snap.Status),
		Phase:            snap.Phase,
		Progress:         snap.Progress,
		Title:            snap.Title,
		GeneratedContent: snap.GeneratedContent,
		Sections:         datatypes.JSON(sections),
		ErrorMessage:     snap.ErrorMessage,
		CreatedAt:        snap.CreatedAt.UTC(),
		UpdatedAt:        snap.UpdatedAt.UTC(),
	}
	if snap.Metadata != nil {
		md, err := json.Marshal(snap.Metadata)
		if err != nil {
			return runRecord{}, fmt.Errorf("marshal metadata: %w", err)
		}
		rec.Metadata = datatypes.JSON(md)
	}
	return rec, nil
}

func fromRecord(rec runRecord) (RunSnapshot, error) {
	snap := RunSnapshot{
		ID:               rec.ID,
		UserID:           rec.UserID,
		Region:           rec.Region,
		PlanType:         rec.PlanType,
		TemplateID:       rec.TemplateID,
		Status:           planning.Status(rec.Status),
		Phase:            rec.Phase,
		Progress:         rec.Progress,
		Title:            rec.Title,
		GeneratedContent: rec.GeneratedContent,
		Sections:         []planning.GeneratedSection{},
		ErrorMessage:     rec.ErrorMessage,
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
	}
	if len(rec.Sections) > 0 && string(rec.Sections) != "null" {
		if err := json.Unmarshal(rec.Sections, &snap.Sections); err != nil {
			return RunSnapshot{}, fmt.Errorf("decode sections of run %s: %w", rec.ID, err)
		}
	}
	if len(rec.Metadata) > 0 && string(rec.Metadata) != "null" {
		var md planning.Metadata
		if err := json.Unmarshal(rec.Metadata, &md); err != nil {
			return RunSnapshot{}, fmt.Errorf("decode metadata of run %s: %w", rec.ID, err)
		}
		snap.Metadata = &md
	}
	return snap, nil
}
