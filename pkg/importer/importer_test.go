package importer

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/voltlab/gridflow/pkg/grid"
	"github.com/voltlab/gridflow/pkg/powerflow"
)

// writeNetwork materializes a network directory from file name to CSV
// content.
func writeNetwork(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	return dir
}

// validNetwork is a three-bus fixture: slack n1, generator on n2, load
// on n3, two timestamps.
func validNetwork() map[string]string {
	return map[string]string{
		"settings.csv": "v_nom,s_nom,slack,is_import_pu,is_resistance_pu\n" +
			"20,50,n1,false,false\n",
		"buses.csv": "name\nn1\nn2\nn3\n",
		"lines.csv": "from,to,g_series,b_series,g_shunt,b_shunt\n" +
			"n1,n2,4,-16,0,0.2\n" +
			"n2,n3,4,-16,0,0.2\n",
		"generators.csv": "name,bus,p_min,p_max,q_min,q_max\n" +
			"gen1,n2,0,50,-25,25\n",
		"loads.csv": "name,bus\nload1,n3\n",
		"series.csv": "timestamp,element,p,q\n" +
			"2024-06-01T10:00,gen1,30,0\n" +
			"2024-06-01T10:00,load1,25,5\n" +
			"2024-06-01T11:00,gen1,35,0\n" +
			"2024-06-01T11:00,load1,28,6\n",
	}
}

func TestLoadValidNetwork(t *testing.T) {
	dir := writeNetwork(t, validNetwork())

	g, err := Load(dir, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	s := g.Settings()
	if s.VNom != 20 || s.SNom != 50 || s.SlackBus != "n1" {
		t.Errorf("Settings = %+v", s)
	}
	if s.ImportIsPerUnit || s.ResistanceIsPerUnit {
		t.Error("Per-unit flags should be false")
	}

	buses := g.Buses()
	if len(buses) != 3 {
		t.Fatalf("Expected 3 buses, got %d", len(buses))
	}
	// File order fixes matrix order.
	for i, want := range []string{"n1", "n2", "n3"} {
		if buses[i].Name != want {
			t.Errorf("Bus %d = %q, want %q", i, buses[i].Name, want)
		}
	}

	if len(g.Lines()) != 2 {
		t.Errorf("Expected 2 lines, got %d", len(g.Lines()))
	}
	if got := g.Lines()[0].YSeries; got != complex(4, -16) {
		t.Errorf("Line admittance = %v, want (4-16i)", got)
	}
	if got := g.Lines()[0].YShunt; got != complex(0, 0.2) {
		t.Errorf("Shunt admittance = %v, want (0+0.2i)", got)
	}

	if len(buses[1].Generators) != 1 {
		t.Fatalf("Expected 1 generator on n2, got %d", len(buses[1].Generators))
	}
	gen := buses[1].Generators[0]
	if gen.PMax != 50 || gen.QMin != -25 {
		t.Errorf("Generator limits = %+v", gen)
	}
	if len(buses[2].Loads) != 1 {
		t.Fatalf("Expected 1 load on n3, got %d", len(buses[2].Loads))
	}

	sp, err := gen.Setpoints.At("2024-06-01T11:00")
	if err != nil {
		t.Fatalf("Setpoint lookup failed: %v", err)
	}
	if sp.P != 35 || sp.Q != 0 {
		t.Errorf("Setpoint = %+v, want P=35 Q=0", sp)
	}
}

func TestLoadTimestampOrderIsFirstAppearance(t *testing.T) {
	files := validNetwork()
	// T2 appears first in the file even though T1 sorts before it.
	files["series.csv"] = "timestamp,element,p,q\n" +
		"T2,gen1,30,0\n" +
		"T2,load1,25,5\n" +
		"T1,gen1,35,0\n" +
		"T1,load1,28,6\n" +
		"T2,load1,26,5\n"
	dir := writeNetwork(t, files)

	g, err := Load(dir, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	ts := g.Timestamps()
	if len(ts) != 2 || ts[0] != "T2" || ts[1] != "T1" {
		t.Errorf("Timestamps = %v, want [T2 T1]", ts)
	}

	// The repeated T2 row replaced the earlier setpoint.
	sp, err := g.Buses()[2].Loads[0].Setpoints.At("T2")
	if err != nil {
		t.Fatalf("Setpoint lookup failed: %v", err)
	}
	if sp.P != 26 {
		t.Errorf("Replaced setpoint P = %g, want 26", sp.P)
	}
}

func TestLoadedNetworkSolves(t *testing.T) {
	dir := writeNetwork(t, validNetwork())

	g, err := Load(dir, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	all, voltage, err := g.Classify("2024-06-01T10:00")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if len(all) != 3 || len(voltage) != 2 {
		t.Fatalf("Classified %d/%d buses, want 3/2", len(all), len(voltage))
	}
	if all[0].Kind != powerflow.Slack || all[1].Kind != powerflow.PV || all[2].Kind != powerflow.PQ {
		t.Errorf("Kinds = %v/%v/%v, want slack/PV/PQ", all[0].Kind, all[1].Kind, all[2].Kind)
	}
	// Setpoints arrive in per-unit of s_nom = 50.
	if all[1].PGen != 30.0/50 {
		t.Errorf("PV generation = %g, want 0.6", all[1].PGen)
	}
	if all[2].PLoad != 25.0/50 {
		t.Errorf("PQ load = %g, want 0.5", all[2].PLoad)
	}
	if all[1].PMax != 1 {
		t.Errorf("PV p_max = %g, want 1", all[1].PMax)
	}
}

func TestLoadMissingDirectory(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent"), nil); !errors.Is(err, ErrNotADirectory) {
		t.Errorf("Expected ErrNotADirectory, got %v", err)
	}
}

func TestLoadPathIsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "network")
	if err := os.WriteFile(path, []byte("not a dir"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	if _, err := Load(path, nil); !errors.Is(err, ErrNotADirectory) {
		t.Errorf("Expected ErrNotADirectory, got %v", err)
	}
}

func TestLoadMissingRequiredFile(t *testing.T) {
	for _, name := range []string{"settings.csv", "buses.csv", "lines.csv", "generators.csv", "loads.csv", "series.csv"} {
		t.Run(name, func(t *testing.T) {
			files := validNetwork()
			delete(files, name)
			dir := writeNetwork(t, files)

			if _, err := Load(dir, nil); !errors.Is(err, ErrMissingFile) {
				t.Errorf("Expected ErrMissingFile without %s, got %v", name, err)
			}
		})
	}
}

func TestLoadTransformersOptional(t *testing.T) {
	// Without the file the network has no transformers.
	g, err := Load(writeNetwork(t, validNetwork()), nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(g.Transformers()) != 0 {
		t.Errorf("Expected no transformers, got %d", len(g.Transformers()))
	}

	files := validNetwork()
	files["transformers.csv"] = "from,to,g_series,b_series\nn1,n3,0,-25\n"
	g, err = Load(writeNetwork(t, files), nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	trs := g.Transformers()
	if len(trs) != 1 {
		t.Fatalf("Expected 1 transformer, got %d", len(trs))
	}
	if trs[0].From != "n1" || trs[0].To != "n3" || trs[0].YSeries != complex(0, -25) {
		t.Errorf("Transformer = %+v", trs[0])
	}
}

func TestLoadDuplicateElementName(t *testing.T) {
	files := validNetwork()
	// A load reusing a generator name makes series rows ambiguous.
	files["loads.csv"] = "name,bus\ngen1,n3\n"
	dir := writeNetwork(t, files)

	if _, err := Load(dir, nil); !errors.Is(err, ErrDuplicateElement) {
		t.Errorf("Expected ErrDuplicateElement, got %v", err)
	}
}

func TestLoadSeriesUnknownElement(t *testing.T) {
	files := validNetwork()
	files["series.csv"] = "timestamp,element,p,q\nT1,phantom,1,0\n"
	dir := writeNetwork(t, files)

	if _, err := Load(dir, nil); !errors.Is(err, ErrUnknownElement) {
		t.Errorf("Expected ErrUnknownElement, got %v", err)
	}
}

func TestLoadSeriesEmpty(t *testing.T) {
	files := validNetwork()
	files["series.csv"] = "timestamp,element,p,q\n"
	dir := writeNetwork(t, files)

	if _, err := Load(dir, nil); !errors.Is(err, ErrNoTimestamps) {
		t.Errorf("Expected ErrNoTimestamps, got %v", err)
	}
}

func TestLoadIncompleteCoverage(t *testing.T) {
	files := validNetwork()
	// load1 misses the second timestamp.
	files["series.csv"] = "timestamp,element,p,q\n" +
		"T1,gen1,30,0\n" +
		"T1,load1,25,5\n" +
		"T2,gen1,35,0\n"
	dir := writeNetwork(t, files)

	if _, err := Load(dir, nil); !errors.Is(err, grid.ErrSeriesNotCovering) {
		t.Errorf("Expected ErrSeriesNotCovering, got %v", err)
	}
}

func TestLoadUnknownBusReference(t *testing.T) {
	files := validNetwork()
	files["generators.csv"] = "name,bus,p_min,p_max,q_min,q_max\ngen1,ghost,0,50,-25,25\n"
	dir := writeNetwork(t, files)

	if _, err := Load(dir, nil); !errors.Is(err, grid.ErrUnknownBus) {
		t.Errorf("Expected ErrUnknownBus, got %v", err)
	}
}

func TestLoadSettingsShape(t *testing.T) {
	files := validNetwork()
	files["settings.csv"] = "v_nom,s_nom,slack\n20,50,n1\n20,50,n1\n"
	if _, err := Load(writeNetwork(t, files), nil); err == nil {
		t.Error("Expected error for two settings rows")
	}

	files["settings.csv"] = "v_nom,slack\n20,n1\n"
	if _, err := Load(writeNetwork(t, files), nil); err == nil {
		t.Error("Expected error for missing s_nom column")
	}

	files["settings.csv"] = "v_nom,s_nom,slack\nabc,50,n1\n"
	if _, err := Load(writeNetwork(t, files), nil); err == nil {
		t.Error("Expected error for non-numeric v_nom")
	}
}

func TestLoadOmittedFlagColumnsDefaultFalse(t *testing.T) {
	files := validNetwork()
	files["settings.csv"] = "v_nom,s_nom,slack\n20,50,n1\n"
	dir := writeNetwork(t, files)

	g, err := Load(dir, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	s := g.Settings()
	if s.ImportIsPerUnit || s.ResistanceIsPerUnit {
		t.Error("Omitted flag columns should read as false")
	}
}

func TestLoadBadNumberReportsRow(t *testing.T) {
	files := validNetwork()
	files["lines.csv"] = "from,to,g_series,b_series,g_shunt,b_shunt\n" +
		"n1,n2,4,-16,0,0.2\n" +
		"n2,n3,4,oops,0,0.2\n"
	dir := writeNetwork(t, files)

	_, err := Load(dir, nil)
	if err == nil {
		t.Fatal("Expected error for bad admittance")
	}
	// Row 2 of the data sits on line 3 of the file.
	if want := "lines.csv:3"; !strings.Contains(err.Error(), want) {
		t.Errorf("Error %q does not name %s", err, want)
	}
}
