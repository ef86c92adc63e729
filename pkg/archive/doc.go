// Package archive stores completed grading runs for later inspection.
//
// Every archived run keeps the full results payload, so `gradekeeper
// history show` can display exactly what the student saw. The archive
// is a local concern: platform runs hand persistence to the platform,
// and archiving there is purely an instructor convenience.
//
// The retention subpackage prunes old runs, on demand or on a cron
// schedule in watch mode.
package archive
