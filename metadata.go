package main

// metadata module keeps records of training runs
//
// Copyright (c) 2023 - Valentin Kuznetsov <vkuznet@gmail.com>
//

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/mgo.v2/bson"
)

// run statuses
const (
	RunStarted   = "started"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// Record define training run mongo record
type Record struct {
	RunID    string                 `json:"run_id" bson:"run_id"`     // run identifier
	Model    string                 `json:"model" bson:"model"`       // run (model) name
	Type     string                 `json:"type" bson:"type"`         // ML type
	Dataset  string                 `json:"dataset" bson:"dataset"`   // dataset descriptor
	Status   string                 `json:"status" bson:"status"`     // run status
	Reason   string                 `json:"reason" bson:"reason"`     // failure reason
	Config   map[string]interface{} `json:"config" bson:"config"`     // training parameters
	Metrics  Metrics                `json:"metrics" bson:"metrics"`   // final validation metrics
	Weights  string                 `json:"weights" bson:"weights"`   // trained weights file
	Started  time.Time              `json:"started" bson:"started"`   // start time
	Finished time.Time              `json:"finished" bson:"finished"` // end time
}

// ToJSON provides string representation of Record
func (r Record) ToJSON() string {
	// create pretty JSON representation of the record
	data, _ := json.MarshalIndent(r, "", "    ")
	return string(data)
}

// RunStore keeps track of training runs
type RunStore interface {
	Start(rec Record) error
	Finish(runID, status, reason string, metrics Metrics) error
}

// MetaData represents meta-data database object
type MetaData struct {
	DBName string
	DBColl string
}

// NewMetaData returns meta-data store for current configuration or nil
// if no database is configured
func NewMetaData() *MetaData {
	if Config.DBURI == "" {
		return nil
	}
	return &MetaData{DBName: Config.DBName, DBColl: Config.DBColl}
}

// Start records beginning of the training run
func (m *MetaData) Start(rec Record) error {
	if err := MongoEnsureIndex(m.DBName, m.DBColl); err != nil {
		return err
	}
	rec.Status = RunStarted
	return MongoUpsert(m.DBName, m.DBColl, []Record{rec})
}

// Finish updates training run with its final status and metrics
func (m *MetaData) Finish(runID, status, reason string, metrics Metrics) error {
	spec := bson.M{"run_id": runID}
	meta := bson.M{
		"status":   status,
		"reason":   reason,
		"metrics":  metrics,
		"finished": time.Now(),
	}
	return MongoUpdate(m.DBName, m.DBColl, spec, meta)
}

// Get returns record of given training run
func (m *MetaData) Get(runID string) (Record, error) {
	records, err := MongoGet(m.DBName, m.DBColl, bson.M{"run_id": runID}, 0, 1)
	if err != nil {
		return Record{}, NewError(ExternalRoutineFailure, "unable to read training run "+runID, err)
	}
	if len(records) == 0 {
		return Record{}, NewError(InvalidInput, "no training run "+runID, nil)
	}
	return records[0], nil
}

// Remove removes given run from MetaData database
func (m *MetaData) Remove(runID string) error {
	if _, err := m.Get(runID); err != nil {
		return err
	}
	spec := bson.M{"run_id": runID}
	if err := MongoRemove(m.DBName, m.DBColl, spec); err != nil {
		return NewError(ExternalRoutineFailure, "unable to remove training run "+runID, err)
	}
	return nil
}

// helper function to build look-up spec of given run name
func modelSpec(model string) bson.M {
	spec := bson.M{}
	if model != "" {
		spec["model"] = model
	}
	return spec
}

// Records retrieves records from underlying MetaData database, most recent first
func (m *MetaData) Records(model string, limit int) ([]Record, error) {
	return MongoGetSorted(m.DBName, m.DBColl, modelSpec(model), []string{"-started"}, limit)
}

// PrintHistory prints recorded training runs, full records when asJSON is set
func (m *MetaData) PrintHistory(w io.Writer, model string, limit int, asJSON bool) error {
	records, err := m.Records(model, limit)
	if err != nil {
		return NewError(ExternalRoutineFailure, "unable to read training history", err)
	}
	if asJSON {
		for _, rec := range records {
			fmt.Fprintln(w, rec.ToJSON())
		}
		return nil
	}
	fmt.Fprintf(w, "📚 %d training runs recorded\n", MongoCount(m.DBName, m.DBColl, modelSpec(model)))
	for _, rec := range records {
		fmt.Fprintf(w, "%s %s %-9s %s\n",
			rec.Started.Format(time.RFC3339), rec.RunID, rec.Status, rec.Model)
		if rec.Status == RunSucceeded {
			fmt.Fprintf(w, "    %s\n", rec.Metrics)
		} else if rec.Reason != "" {
			fmt.Fprintf(w, "    %s\n", rec.Reason)
		}
	}
	return nil
}
