package main

import (
	"gopkg.in/yaml.v3"
)

// SkipListManagerImpl records versions that triggered a rollback so the
// update channel never re-offers them. The list is manually managed
// only: there is no automatic expiry, just the administrative clear.
type SkipListManagerImpl struct {
	settings Settings
}

func NewSkipListManager(settings Settings) *SkipListManagerImpl {
	return &SkipListManagerImpl{settings: settings}
}

func (s *SkipListManagerImpl) AddFailedVersion(version string) error {
	versions := s.GetFailedVersions()
	for _, v := range versions {
		if v == version {
			return nil
		}
	}
	versions = append(versions, version)
	data, err := yaml.Marshal(versions)
	if err != nil {
		return err
	}
	return s.settings.Set(keyFailedUpdateVersions, string(data))
}

// GetFailedVersions degrades a missing or corrupt list to an empty one.
// An update check must never fail because the skip list is unreadable.
func (s *SkipListManagerImpl) GetFailedVersions() []string {
	raw, err := s.settings.Get(keyFailedUpdateVersions)
	if err != nil {
		return nil
	}
	var versions []string
	if err := yaml.Unmarshal([]byte(raw), &versions); err != nil {
		logger.Info("failed-version list is unreadable, treating as empty: %v", err)
		return nil
	}
	return versions
}

func (s *SkipListManagerImpl) ClearFailedVersions() error {
	return s.settings.Delete(keyFailedUpdateVersions)
}
