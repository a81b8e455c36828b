package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// MetadataCSV is a small metadata.csv with three journals, two sources,
// publish years 2019 to 2021, one unparseable date and one missing title.
const MetadataCSV = `cord_uid,title,abstract,publish_time,journal,source_x,doi
a1,Coronavirus spread in households,Household transmission of SARS-CoV-2,2020-03-01,Lancet,PMC,
a2,Vaccine trial design,Design of vaccine trials during a pandemic,2020-06-15,Nature,Medline,10.1/x
a3,,Infection control in hospitals,2021-01-10,Lancet,PMC,
a4,Influenza and coronavirus comparison,,2019-11-20,BMJ,WHO,
a5,Ventilator allocation ethics,Allocation of scarce ventilators,sometime,Nature,Medline,
a6,Mask efficacy review,Masks reduce transmission of respiratory viruses,2021-05-05,Lancet,PMC,
`

// MetadataCSVRecords is the number of data rows in MetadataCSV.
const MetadataCSVRecords = 6

// WriteMetadataFile writes MetadataCSV into dir and returns its path.
func WriteMetadataFile(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "metadata.csv")
	if err := os.WriteFile(path, []byte(MetadataCSV), 0o644); err != nil {
		t.Fatalf("write metadata fixture: %v", err)
	}
	return path
}
