// Package apiresponses provides standardized HTTP API response helpers
// (bad request, not-found, unprocessable, internal and gateway errors) used
// by the api handlers and decoded by the client package.
package apiresponses
