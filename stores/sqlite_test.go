package stores_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/9seconds/geostash/stores"
	"github.com/stretchr/testify/suite"
)

type SQLiteTestSuite struct {
	StoreTestSuite

	path string
	s    *stores.SQLite
}

func (suite *SQLiteTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.path = filepath.Join(suite.T().TempDir(), "geostash.db")

	s, err := stores.NewSQLite(suite.ctx, suite.path)

	suite.Require().NoError(err)

	suite.s = s
	suite.store = s
}

func (suite *SQLiteTestSuite) TearDownTest() {
	suite.s.Close()
}

func (suite *SQLiteTestSuite) TestPing() {
	suite.NoError(suite.s.Ping(suite.ctx))
}

func (suite *SQLiteTestSuite) TestReopenKeepsData() {
	saved, err := suite.s.Upsert(suite.ctx, suite.Record("8.8.8.8"))

	suite.NoError(err)
	suite.NoError(suite.s.Close())

	s, err := stores.NewSQLite(suite.ctx, suite.path)

	suite.Require().NoError(err)

	suite.s = s

	fetched, ok, err := s.Get(suite.ctx, suite.Address("8.8.8.8"))

	suite.NoError(err)
	suite.True(ok)
	suite.Equal(saved.ID, fetched.ID)
}

func (suite *SQLiteTestSuite) TestClosed() {
	suite.NoError(suite.s.Close())

	_, _, err := suite.s.Get(suite.ctx, suite.Address("8.8.8.8"))

	suite.Error(err)
}

func TestSQLite(t *testing.T) {
	suite.Run(t, &SQLiteTestSuite{})
}
