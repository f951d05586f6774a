package db

import (
	"fmt"
	"math/rand"
	"regexp"
	"sync"
	"time"

	"bitbucket.org/akrix/backend/models"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

const (
	mysqlDuplicateEntry    = 1062
	postgresUniqueViolated = "23505"
)

// ErrStatusChanged is returned by a guarded status update whose expected status no longer holds.
var ErrStatusChanged = errors.New("payment status changed concurrently")

func isDuplicateEntry(err error) bool {
	switch e := errors.Cause(err).(type) {
	case *mysql.MySQLError:
		return e.Number == mysqlDuplicateEntry
	case *pq.Error:
		return e.Code == postgresUniqueViolated
	}
	return false
}

func conflictOrErr(resource string, err error) error {
	if isDuplicateEntry(err) {
		return &models.ConflictError{Resource: resource, Err: err}
	}
	return err
}

var receiptPrefixPattern = regexp.MustCompile(`^[A-Z]+$`)

// ValidReceiptPrefix reports whether prefix is one or more uppercase ASCII letters.
func ValidReceiptPrefix(prefix string) bool {
	return receiptPrefixPattern.MatchString(prefix)
}

var (
	receiptRandMu sync.Mutex
	receiptRand   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// GenerateReceiptNumber formats PREFIX-YYYYMMDD-RRRR with RRRR drawn from 0000..9999.
// Uniqueness is not checked.
func GenerateReceiptNumber(prefix string, now time.Time) string {
	receiptRandMu.Lock()
	n := receiptRand.Intn(10000)
	receiptRandMu.Unlock()
	return fmt.Sprintf("%s-%s-%04d", prefix, now.Format(ConstLayoutReceiptNumberDate), n)
}

func likePattern(search string) string {
	if search == "" {
		return ""
	}
	return "%" + search + "%"
}
