package runlog

import (
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/tauraamui/videobatch/pkg/log"
	"github.com/tauraamui/xerror"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var fs = afero.NewOsFs()

// Entry records the outcome of one processed source file.
type Entry struct {
	gorm.Model
	RunID   string
	Command string
	Source  string
	Frames  int
	Errored bool
	Error   string
}

type Repo struct {
	db *gorm.DB
}

func Open(path string) (*Repo, error) {
	if parent := filepath.Dir(path); len(parent) > 0 {
		if err := fs.MkdirAll(parent, 0o755); err != nil {
			return nil, xerror.Errorf("unable to create run log location %s: %w", parent, err)
		}
	}

	log.Debug("connecting to run log: %s", path)
	db, err := openDBConnection(path)
	if err != nil {
		return nil, xerror.Errorf("unable to open run log connection: %w", err)
	}

	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, xerror.Errorf("unable to run automigrations: %w", err)
	}

	return &Repo{db: db}, nil
}

var openDBConnection = func(path string) (*gorm.DB, error) {
	logger := logger.New(nil, logger.Config{LogLevel: logger.Silent})
	return gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger})
}

func (r *Repo) Record(runID, command, source string, frames int, runErr error) error {
	entry := Entry{
		RunID:   runID,
		Command: command,
		Source:  source,
		Frames:  frames,
		Errored: runErr != nil,
	}
	if runErr != nil {
		entry.Error = runErr.Error()
	}

	if err := r.db.Create(&entry).Error; err != nil {
		return xerror.Errorf("unable to record run log entry for %s: %w", source, err)
	}
	return nil
}

func (r *Repo) Entries(runID string) ([]Entry, error) {
	var entries []Entry
	if err := r.db.Where("run_id = ?", runID).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *Repo) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
