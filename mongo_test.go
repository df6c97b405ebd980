package main

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/mgo.v2/bson"
)

// helper function to point MetaData to test MongoDB instance
func testMetaData(t *testing.T) *MetaData {
	t.Helper()
	uri := os.Getenv("MUSHROOM_TEST_DB_URI")
	if uri == "" {
		t.Skip("MUSHROOM_TEST_DB_URI is not set")
	}
	orig := Config
	t.Cleanup(func() { Config = orig })
	initMetaDataService()
	withConfig(t, func(c *Configuration) {
		c.DBURI = uri
		c.DBName = "mushroom_test"
		c.DBColl = "runs"
	})
	md := NewMetaData()
	require.NotNil(t, md)
	return md
}

// TestMongoUpsert
func TestMongoUpsert(t *testing.T) {
	md := testMetaData(t)

	// remove all records in test collection
	MongoRemove(md.DBName, md.DBColl, bson.M{})

	// insert one record
	rec := Record{
		RunID:   uuid.New().String(),
		Model:   RunName,
		Type:    "PyTorch",
		Dataset: DataDescriptor,
		Status:  RunStarted,
		Config:  DefaultTrainingConfig().Map(),
		Weights: WeightsPath(),
		Started: time.Now(),
	}
	require.NoError(t, MongoUpsert(md.DBName, md.DBColl, []Record{rec}))
	// same run id replaces existing record
	rec.Status = RunFailed
	require.NoError(t, MongoUpsert(md.DBName, md.DBColl, []Record{rec}))

	// look-up one record
	spec := bson.M{"run_id": rec.RunID}
	records, err := MongoGet(md.DBName, md.DBColl, spec, 0, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, RunName, records[0].Model)
	assert.Equal(t, RunFailed, records[0].Status)
	assert.Equal(t, 1, MongoCount(md.DBName, md.DBColl, spec))
}

// TestMetaDataRun
func TestMetaDataRun(t *testing.T) {
	md := testMetaData(t)
	MongoRemove(md.DBName, md.DBColl, bson.M{})

	runID := uuid.New().String()
	require.NoError(t, md.Start(Record{RunID: runID, Model: RunName, Started: time.Now()}))
	metrics := Metrics{MAP50: 0.8, MAP50_95: 0.55, Precision: 0.81, Recall: 0.74}
	require.NoError(t, md.Finish(runID, RunSucceeded, "", metrics))

	records, err := md.Records(RunName, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, RunSucceeded, records[0].Status)
	assert.InDelta(t, 0.8, records[0].Metrics.MAP50, 1e-9)

	rec, err := md.Get(runID)
	require.NoError(t, err)
	assert.Equal(t, RunName, rec.Model)

	require.NoError(t, md.Remove(runID))
	assert.Equal(t, 0, MongoCount(md.DBName, md.DBColl, bson.M{"run_id": runID}))
	_, err = md.Get(runID)
	assert.Equal(t, InvalidInput, KindOf(err))
	assert.Equal(t, InvalidInput, KindOf(md.Remove(runID)))
}

// TestHistoryCommand
func TestHistoryCommand(t *testing.T) {
	md := testMetaData(t)
	MongoRemove(md.DBName, md.DBColl, bson.M{})
	runID := uuid.New().String()
	require.NoError(t, md.Start(Record{RunID: runID, Model: RunName, Started: time.Now()}))

	var buf bytes.Buffer
	require.NoError(t, md.PrintHistory(&buf, RunName, 0, true))
	assert.Contains(t, buf.String(), `"run_id": "`+runID+`"`)

	buf.Reset()
	require.NoError(t, md.PrintHistory(&buf, RunName, 0, false))
	assert.Contains(t, buf.String(), "1 training runs recorded")
	assert.Contains(t, buf.String(), runID)

	cmd := historyCommand(&buf)
	cmd.SetArgs([]string{"--remove", runID})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Removed training run "+runID)
	assert.Equal(t, 0, MongoCount(md.DBName, md.DBColl, bson.M{"run_id": runID}))
}
