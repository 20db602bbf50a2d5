package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/mentor-match/internal/domain"
	"github.com/fairyhunter13/mentor-match/internal/usecase"
)

type seedYAML struct {
	Mentors []seedMentor `yaml:"mentors"`
}

type seedMentor struct {
	Name         string           `yaml:"name"`
	Bio          string           `yaml:"bio"`
	Expertise    string           `yaml:"expertise"`
	Capacity     int              `yaml:"capacity"`
	Availability seedAvailability `yaml:"availability"`
	Industries   []string         `yaml:"industries"`
	Languages    []string         `yaml:"languages"`
}

type seedAvailability struct {
	HoursPerMonth int                 `yaml:"hours_per_month"`
	Windows       map[string][]string `yaml:"windows"`
}

// seedMentorsFromYAML creates mentors from a YAML file. Individual failures
// are logged and skipped so one bad entry doesn't block a fresh environment.
func seedMentorsFromYAML(ctx context.Context, profiles usecase.ProfileService, path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("seed file not found: %s", path)
		}
		return 0, err
	}
	var doc seedYAML
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return 0, fmt.Errorf("yaml parse: %w", err)
	}
	if len(doc.Mentors) == 0 {
		return 0, fmt.Errorf("no mentors to seed in %s", path)
	}

	n := 0
	for _, m := range doc.Mentors {
		_, err := profiles.CreateMentor(ctx, domain.MentorProfile{
			Name:         m.Name,
			Bio:          m.Bio,
			Expertise:    m.Expertise,
			Capacity: m.Capacity,
			Availability: domain.Availability{
				HoursPerMonth: m.Availability.HoursPerMonth,
				Windows:       m.Availability.Windows,
			},
			Preferences: domain.Preferences{
				Industries: m.Industries,
				Languages:  m.Languages,
			},
		})
		if err != nil {
			slog.Warn("skipping seed mentor", slog.String("name", m.Name), slog.Any("error", err))
			continue
		}
		n++
	}
	return n, nil
}
