// Package export serializes merged lot collections to GeoJSON and
// reads them back. Output coordinates are WGS84 longitude/latitude and
// writes are atomic via rename.
package export
