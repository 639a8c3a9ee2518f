// Package catalog records converted meshes in a SQLite database, so a batch
// conversion can be inspected or re-exported without rerunning it.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Faultbox/polyweld/internal/logger"
	"github.com/Faultbox/polyweld/pkg/meshio"
	"github.com/Faultbox/polyweld/pkg/polymesh"
)

// SchemaVersion is stored in the metadata table.
const SchemaVersion = 1

// ErrNotFound is returned when no mesh is stored under a name.
var ErrNotFound = errors.New("mesh not in catalog")

// MeshRecord is one converted mesh.
type MeshRecord struct {
	Name      string `gorm:"primaryKey"`
	Format    string
	Vertices  int
	Faces     int
	Edges     int
	Data      []byte
	UpdatedAt time.Time
}

// Metadata holds catalog-wide key/value settings.
type Metadata struct {
	Key   string `gorm:"primaryKey"`
	Value string
}

// Catalog is an open mesh catalog. It implements the pipeline's mesh sink.
type Catalog struct {
	db     *gorm.DB
	format meshio.Format
}

// Open opens or creates the catalog at path. Meshes are stored encoded in
// format.
func Open(path string, format meshio.Format) (*Catalog, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating catalog dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening catalog %s: %w", path, err)
	}
	if err := db.AutoMigrate(&MeshRecord{}, &Metadata{}); err != nil {
		return nil, fmt.Errorf("migrating catalog: %w", err)
	}
	if err := db.Save(&Metadata{Key: "SchemaVersion", Value: fmt.Sprint(SchemaVersion)}).Error; err != nil {
		return nil, fmt.Errorf("writing catalog metadata: %w", err)
	}

	logger.Debug("catalog opened", zap.String("path", path), zap.String("format", string(format)))
	return &Catalog{db: db, format: format}, nil
}

// Write stores m under name, replacing any earlier record.
func (c *Catalog) Write(name string, m *polymesh.Mesh) error {
	data, err := meshio.Encode(c.format, m, 0)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}

	record := MeshRecord{
		Name:     name,
		Format:   string(c.format),
		Vertices: len(m.Positions),
		Faces:    len(m.Faces),
		Edges:    len(m.Edges),
		Data:     data,
	}
	if err := c.db.Save(&record).Error; err != nil {
		return fmt.Errorf("saving %s: %w", name, err)
	}
	return nil
}

// Get returns the record stored under name.
func (c *Catalog) Get(name string) (*MeshRecord, error) {
	var record MeshRecord
	err := c.db.First(&record, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Document decodes the mesh stored under name.
func (c *Catalog) Document(name string) (*meshio.Document, error) {
	record, err := c.Get(name)
	if err != nil {
		return nil, err
	}
	return meshio.Decode(meshio.Format(record.Format), record.Data)
}

// List returns every record ordered by name, without the encoded data.
func (c *Catalog) List() ([]MeshRecord, error) {
	var records []MeshRecord
	err := c.db.Select("name", "format", "vertices", "faces", "edges", "updated_at").
		Order("name").
		Find(&records).Error
	return records, err
}

// Delete removes the record stored under name.
func (c *Catalog) Delete(name string) error {
	res := c.db.Delete(&MeshRecord{}, "name = ?", name)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

// Close releases the database connection.
func (c *Catalog) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
