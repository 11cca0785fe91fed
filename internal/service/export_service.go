package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"cafepulse/internal/models"
	"cafepulse/internal/repository"
	"cafepulse/internal/utils"

	"github.com/jszwec/csvutil"
)

var ErrNoPopularTimes = errors.New("no popular times stored")

type ExportService interface {
	GetCafePopularTimes(ctx context.Context, id string) (*models.Cafe, error)
	ExportPopularTimes(ctx context.Context, format string) (string, error)
}

type exportService struct {
	repo      repository.CafeRepository
	outputDir string
}

// ExportRow is one hour slot of one cafe in the flat CSV export.
type ExportRow struct {
	CafeID    string `csv:"cafe_id"`
	CafeName  string `csv:"cafe_name"`
	Day       string `csv:"day"`
	Hour      int    `csv:"hour"`
	Busyness  int    `csv:"busyness"`
	Mock      bool   `csv:"is_mock_data"`
	UpdatedAt string `csv:"updated_at"`
}

func NewExportService(repo repository.CafeRepository, outputDir string) ExportService {
	if outputDir == "" {
		outputDir = filepath.Join(os.TempDir(), "cafepulse")
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		log.Printf("Failed to create export directory: %v", err)
	}

	return &exportService{
		repo:      repo,
		outputDir: outputDir,
	}
}

func (s *exportService) GetCafePopularTimes(ctx context.Context, id string) (*models.Cafe, error) {
	cafe, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cafe.PopularTimes == nil {
		return nil, ErrNoPopularTimes
	}
	return cafe, nil
}

func (s *exportService) ExportPopularTimes(ctx context.Context, format string) (string, error) {
	cafes, err := s.repo.ListWithPopularTimes(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load popular times: %w", err)
	}

	if len(cafes) == 0 {
		return "", ErrNoPopularTimes
	}

	timestamp := time.Now().UTC().Format("20060102_150405")

	switch format {
	case "csv":
		path := filepath.Join(s.outputDir, fmt.Sprintf("popular_times_%s.csv", timestamp))
		if err := saveRowsCSV(path, FlattenPopularTimes(cafes)); err != nil {
			return "", err
		}
		return path, nil

	case "excel", "xlsx":
		path := filepath.Join(s.outputDir, fmt.Sprintf("popular_times_%s.xlsx", timestamp))
		if err := utils.CreateHeatmapFile(path, cafes); err != nil {
			return "", fmt.Errorf("failed to create Excel file: %w", err)
		}
		return path, nil

	case "json":
		path := filepath.Join(s.outputDir, fmt.Sprintf("popular_times_%s.json", timestamp))
		if err := utils.SaveAsJSON(path, cafes); err != nil {
			return "", err
		}
		return path, nil

	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// FlattenPopularTimes expands every stored payload into 7x24 rows.
func FlattenPopularTimes(cafes []models.Cafe) []ExportRow {
	var rows []ExportRow
	for _, cafe := range cafes {
		if cafe.PopularTimes == nil {
			continue
		}
		updated := ""
		if cafe.PopularTimesUpdatedAt != nil {
			updated = cafe.PopularTimesUpdatedAt.UTC().Format(time.RFC3339)
		}
		for _, day := range cafe.PopularTimes.Days {
			for hour, v := range day.Data {
				rows = append(rows, ExportRow{
					CafeID:    cafe.ID,
					CafeName:  cafe.Name,
					Day:       day.Name,
					Hour:      hour,
					Busyness:  v,
					Mock:      cafe.PopularTimes.IsMockData,
					UpdatedAt: updated,
				})
			}
		}
	}
	return rows
}

func saveRowsCSV(path string, rows []ExportRow) error {
	b, err := csvutil.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to encode CSV: %w", err)
	}
	return os.WriteFile(path, b, 0644)
}
