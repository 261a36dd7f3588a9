// Package core provides the domain models and interfaces for the aidoc
// backend: the job state machine, the persisted job record, the store and
// generator contracts, and the coded error taxonomy shared by every layer.
package core
