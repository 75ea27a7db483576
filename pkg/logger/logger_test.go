package logger

import (
	"errors"
	"testing"
)

func TestLogAndReadBack(t *testing.T) {
	l, err := NewLogger(t.TempDir(), false)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer l.Close()

	l.Log(LogEntry{Level: LevelInfo, Category: CategoryCluster, Action: "recluster_done", Message: "Clusters rebuilt", Data: map[string]interface{}{"clusters": 3}})
	l.Log(LogEntry{Level: LevelError, Category: CategoryAlert, Action: "proximity_failed", Message: "Distance query failed", Error: errors.New("timeout").Error()})
	l.Log(LogEntry{Level: LevelDebug, Category: CategoryCluster, Action: "assign", Message: "Assigning labels"})

	entries, err := l.ReadLogs(ReadLogsOptions{})
	if err != nil {
		t.Fatalf("ReadLogs: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	errorsOnly, _ := l.ReadLogs(ReadLogsOptions{Level: LevelError})
	if len(errorsOnly) != 1 || errorsOnly[0].Error != "timeout" || errorsOnly[0].Category != CategoryAlert {
		t.Errorf("level filter = %+v", errorsOnly)
	}

	cluster, _ := l.ReadLogs(ReadLogsOptions{Category: CategoryCluster, Search: "REBUILT"})
	if len(cluster) != 1 || cluster[0].Action != "recluster_done" {
		t.Errorf("category/search filter = %+v", cluster)
	}
	if cluster[0].Data["clusters"] != float64(3) {
		t.Errorf("data = %v", cluster[0].Data)
	}
}

func TestMinLevel(t *testing.T) {
	l, err := NewLogger(t.TempDir(), false)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer l.Close()
	l.SetMinLevel(LevelWarn)

	l.Log(LogEntry{Level: LevelInfo, Category: CategoryAPI, Action: "a", Message: "dropped"})
	l.Log(LogEntry{Level: LevelWarn, Category: CategoryAPI, Action: "b", Message: "kept"})

	entries, _ := l.ReadLogs(ReadLogsOptions{Category: CategoryAPI})
	if len(entries) != 1 || entries[0].Message != "kept" {
		t.Errorf("entries = %+v", entries)
	}

	files, err := l.ListLogFiles()
	if err != nil || len(files) != 1 {
		t.Errorf("ListLogFiles = %v, %v", files, err)
	}
}
