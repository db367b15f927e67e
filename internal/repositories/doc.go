// Package repositories implements SQLite persistence for the call history.
//
// Key Implementations:
//   - [CallHistoryRepository] : journal of finished executor runs, implementing [models.Journal] and
//     [executor.Observer]
//
// The schema is created by [shared.RunMigrations]; repositories assume it is current.
package repositories
