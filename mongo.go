package main

// mongo module stores training runs in MongoDB
//
// Copyright (c) 2023 - Valentin Kuznetsov <vkuznet AT gmail dot com>
//
// References : https://gist.github.com/boj/5412538
//              https://gist.github.com/border/3489566

import (
	"log"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"
)

// mongoTimeout bounds dial and socket operations, a slow database must not
// hold training start
const mongoTimeout = 5 * time.Second

// MongoConnection defines connection to MongoDB
type MongoConnection struct {
	Session *mgo.Session
}

// Connect provides connection to MongoDB
func (m *MongoConnection) Connect() (*mgo.Session, error) {
	if m.Session == nil {
		info, err := mgo.ParseURL(Config.DBURI)
		if err != nil {
			return nil, errors.Wrap(err, "unable to parse db_uri")
		}
		info.Timeout = mongoTimeout
		m.Session, err = mgo.DialWithInfo(info)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to dial %v", info.Addrs)
		}
		m.Session.SetMode(mgo.Strong, true)
		m.Session.SetSocketTimeout(mongoTimeout)
	}
	return m.Session.Clone(), nil
}

// global object which holds MongoDB connection
var _Mongo MongoConnection

// helper function to run given function against MongoDB collection
func withCollection(dbname, collname string, f func(c *mgo.Collection) error) error {
	s, err := _Mongo.Connect()
	if err != nil {
		log.Println("Unable to connect to MongoDB", err)
		return err
	}
	defer s.Close()
	return f(s.DB(dbname).C(collname))
}

// MongoEnsureIndex creates unique run_id index of runs collection
func MongoEnsureIndex(dbname, collname string) error {
	return withCollection(dbname, collname, func(c *mgo.Collection) error {
		idx := mgo.Index{Key: []string{"run_id"}, Unique: true, Background: true}
		return c.EnsureIndex(idx)
	})
}

// MongoUpsert records into MongoDB using run_id as a key
func MongoUpsert(dbname, collname string, records []Record) error {
	return withCollection(dbname, collname, func(c *mgo.Collection) error {
		for _, rec := range records {
			if rec.RunID == "" {
				log.Printf("no run id, record %v\n", rec)
				continue
			}
			spec := bson.M{"run_id": rec.RunID}
			if _, err := c.Upsert(spec, &rec); err != nil {
				log.Printf("Fail to upsert run %s, error %v\n", rec.RunID, err)
				return err
			}
		}
		return nil
	})
}

// MongoGet records from MongoDB
func MongoGet(dbname, collname string, spec bson.M, idx, limit int) ([]Record, error) {
	out := []Record{}
	err := withCollection(dbname, collname, func(c *mgo.Collection) error {
		query := c.Find(spec).Skip(idx)
		if limit > 0 {
			query = query.Limit(limit)
		}
		return query.All(&out)
	})
	if err != nil {
		log.Printf("Unable to get records, spec %v, error %v\n", spec, err)
	}
	return out, err
}

// MongoGetSorted records from MongoDB sorted by given keys, limit 0 means all records
func MongoGetSorted(dbname, collname string, spec bson.M, skeys []string, limit int) ([]Record, error) {
	out := []Record{}
	err := withCollection(dbname, collname, func(c *mgo.Collection) error {
		query := c.Find(spec).Sort(skeys...)
		if limit > 0 {
			query = query.Limit(limit)
		}
		return query.All(&out)
	})
	if err != nil {
		log.Printf("Unable to sort records, spec %v, keys %v, error %v\n", spec, skeys, err)
	}
	return out, err
}

// MongoUpdate sets given fields of records matching spec
func MongoUpdate(dbname, collname string, spec, newdata bson.M) error {
	err := withCollection(dbname, collname, func(c *mgo.Collection) error {
		return c.Update(spec, bson.M{"$set": newdata})
	})
	if err != nil {
		log.Printf("Unable to update record, spec %v, data %v, error %v\n", spec, newdata, err)
	}
	return err
}

// MongoCount gets number records from MongoDB
func MongoCount(dbname, collname string, spec bson.M) int {
	var nrec int
	err := withCollection(dbname, collname, func(c *mgo.Collection) error {
		var err error
		nrec, err = c.Find(spec).Count()
		return err
	})
	if err != nil {
		log.Printf("Unable to count records, spec %v, error %v\n", spec, err)
	}
	return nrec
}

// MongoRemove records from MongoDB
func MongoRemove(dbname, collname string, spec bson.M) error {
	err := withCollection(dbname, collname, func(c *mgo.Collection) error {
		_, err := c.RemoveAll(spec)
		return err
	})
	if err != nil && err != mgo.ErrNotFound {
		log.Printf("Unable to remove records, spec %v, error %v\n", spec, err)
		return err
	}
	return nil
}
