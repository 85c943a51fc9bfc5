package testutils

import (
	"encoding/json"
	"fmt"
	"reflect"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/abhivicks22/stockpulse/utils"
)

// InitForTests initializes the utils package with the test configuration: an
// in-memory sqlite database and a debug logger on stdout.
func InitForTests() *utils.Config {
	conf := utils.GetConfiguration()
	if err := utils.Init(conf); err != nil {
		panic(err)
	}
	utils.Logger.Level = logrus.DebugLevel
	return conf
}

func AreEqualJSON(s1, s2 string) (bool, error) {
	var o1 interface{}
	var o2 interface{}

	var err error
	err = json.Unmarshal([]byte(s1), &o1)
	if err != nil {
		return false, fmt.Errorf("Error mashalling string 1 :: %s", err.Error())
	}
	err = json.Unmarshal([]byte(s2), &o2)
	if err != nil {
		return false, fmt.Errorf("Error mashalling string 2 :: %s", err.Error())
	}

	return reflect.DeepEqual(o1, o2), nil
}

// AssertEqualJSON fails the test if the two JSON documents differ
func AssertEqualJSON(t *testing.T, expected, actual string) bool {
	t.Helper()
	equal, err := AreEqualJSON(expected, actual)
	if err != nil {
		t.Errorf("%s", err)
		return false
	}
	if !equal {
		t.Errorf("JSON mismatch.\nexpected: %s\nactual:   %s", expected, actual)
	}
	return equal
}
