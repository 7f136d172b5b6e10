package db

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	rethink "gopkg.in/gorethink/gorethink.v3"
)

const dbAddrEnvVar string = "SAPP_DB_ADDR"
const dbNameDefault string = "staffapps"
const dbNameEnvVar string = "SAPP_DB_NAME"
const baseDbPoolConnections int = 2
const maxDbPoolConnections int = 20

//Connection contains a handle to the database
type Connection struct {
	session *rethink.Session
}

//Init creates a new connection pool for the database at the address provided by the relevant environment variable
func Init() (*Connection, error) {
	//Get DB name from env
	dbName, exists := os.LookupEnv(dbNameEnvVar)
	if !exists {
		logrus.Warnf("DB name was not provided, falling back to default `%v`", dbNameDefault)
		dbName = dbNameDefault
	}
	//Get DB address from env
	rethinkDBAddr, exists := os.LookupEnv(dbAddrEnvVar)
	if !exists {
		logrus.Errorf("`%v` env variable was not set.", dbAddrEnvVar)
		return nil, fmt.Errorf("`%v` env variable was not set", dbAddrEnvVar)
	}
	//Create new connection pool to db
	session, err := rethink.Connect(rethink.ConnectOpts{
		Address:    rethinkDBAddr,
		Database:   dbName,
		InitialCap: baseDbPoolConnections,
		MaxOpen:    maxDbPoolConnections,
	})
	if err != nil {
		logrus.Errorf("Failed to create connection to rethinkdb instance at address %v because %v.", rethinkDBAddr, err)
		return nil, fmt.Errorf("failed to create connection to rethinkdb instance at address %v because %v", rethinkDBAddr, err)
	}

	res := Connection{
		session: session,
	}

	//Ensure database and required tables exist, and wait for it all to be ready
	res.CreateDatabase(dbName)
	res.CreateTables()

	return &res, nil
}

//Close cleanly terminates the database connection
func (db *Connection) Close() {
	logrus.Info("Terminating DB connection...")
	_ = db.session.Close()
}

//CreateTables ensures all tables needed exist.
func (db *Connection) CreateTables() {
	//positions table
	_, err := rethink.TableCreate(positionsTable, rethink.TableCreateOpts{
		PrimaryKey: "id",
	}).RunWrite(db.session)
	if err != nil {
		logrus.Warnf("Failed to create positions table due to error %v", err)
	}
	//submissions table
	_, err = rethink.TableCreate(submissionsTable, rethink.TableCreateOpts{
		PrimaryKey: "id",
	}).RunWrite(db.session)
	if err != nil {
		logrus.Warnf("Failed to create submissions table due to error %v", err)
	}
	//panels table, keyed by channel id so at most one panel exists per channel
	_, err = rethink.TableCreate(panelsTable, rethink.TableCreateOpts{
		PrimaryKey: "id",
	}).RunWrite(db.session)
	if err != nil {
		logrus.Warnf("Failed to create panels table due to error %v", err)
	}
	//Wait for all tables
	rethink.Table(positionsTable).Wait()
	rethink.Table(submissionsTable).Wait()
	rethink.Table(panelsTable).Wait()
}

//CreateDatabase ensures the staffapps database exists
func (db *Connection) CreateDatabase(dbName string) {
	_, err := rethink.DBCreate(dbName).RunWrite(db.session)
	if err != nil {
		logrus.Warnf("Failed to create %v DB due to error %v", dbName, err)
	}
	rethink.DB(dbName).Wait()
}
