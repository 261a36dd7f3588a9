// Package storage provides the GORM-backed job record store.
package storage
