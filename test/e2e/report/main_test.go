package report

import (
	"flag"
	"os"
	"testing"
)

var reporterPath string

func TestMain(m *testing.M) {
	flag.StringVar(&reporterPath, "reporter", "./rhoai-reporter", "path to rhoai-reporter binary")
	flag.Parse()

	if reporterPath == "" {
		panic("missing --reporter")
	}

	ec := m.Run()
	os.Exit(ec)
}
