// Package roster converts between student records and the CSV files teachers
// download from and upload to the dashboard.
//
// Export always quotes every field and never escapes embedded quotes. Import
// tokenizes each line with SplitFields, which does unescape doubled quotes, so a
// value containing a literal quote does not survive an export/import round trip.
package roster
