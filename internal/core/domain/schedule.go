package domain

// ScheduleEntry is one cron-driven backup kind in the schedule document.
type ScheduleEntry struct {
	Cron    string `json:"cron" binding:"required"`
	Enabled bool   `json:"enabled"`
}

// Schedule is the persisted schedule.json document.
type Schedule struct {
	Enabled      bool          `json:"enabled"`
	FullBackup   ScheduleEntry `json:"fullBackup"`
	DBBackup     ScheduleEntry `json:"dbBackup"`
	ConfigBackup ScheduleEntry `json:"configBackup"`
}

// DefaultSchedule is returned when no schedule has been saved yet.
func DefaultSchedule() Schedule {
	return Schedule{
		Enabled:      false,
		FullBackup:   ScheduleEntry{Cron: "0 2 * * 0", Enabled: true},
		DBBackup:     ScheduleEntry{Cron: "0 3 * * *", Enabled: true},
		ConfigBackup: ScheduleEntry{Cron: "0 4 * * 1", Enabled: true},
	}
}

// Entries maps each scheduled kind to its entry.
func (s Schedule) Entries() map[BackupKind]ScheduleEntry {
	return map[BackupKind]ScheduleEntry{
		BackupKindFull:     s.FullBackup,
		BackupKindDatabase: s.DBBackup,
		BackupKindConfig:   s.ConfigBackup,
	}
}
