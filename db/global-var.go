package db

const (
	ConstLayoutReceiptNumberDate = `20060102`

	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"

	DefaultReceiptPrefix = "AKRX"
)
