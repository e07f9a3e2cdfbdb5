package repository

import (
	"errors"
	"fmt"
	"regexp"
	"testing"

	"greenhouse_control/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func newStoreMock(t *testing.T) (*StoreSQLite, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("mock expectations: %v", err)
		}
		_ = db.Close()
	})
	return NewStoreSQLite(db), mock
}

func treeQuery(n int) string {
	placeholders := "?"
	for i := 1; i < n; i++ {
		placeholders += ", ?"
	}
	return regexp.QuoteMeta(fmt.Sprintf(selectTreeSQL, placeholders))
}

var treeColumns = []string{"path", "value"}

func TestStoreSQLite_Set_ReplacesSubtree(t *testing.T) {
	t.Parallel()
	repo, mock := newStoreMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(deleteSubtreeSQL)).
		WithArgs("schedules/watering", 19, "schedules/watering/").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(insertValueSQL)).
		WithArgs("schedules/watering", `{"enabled":true,"times":["06:00","18:00"],"duration":10}`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Set(ctx(t), "/schedules/watering/", models.Schedule{
		Enabled:  true,
		Times:    []string{"06:00", "18:00"},
		Duration: 10,
	})
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
}

func TestStoreSQLite_Set_RollsBackOnError(t *testing.T) {
	t.Parallel()
	repo, mock := newStoreMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(deleteSubtreeSQL)).
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	if err := repo.Set(ctx(t), "status/devices/water", true); err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestStoreSQLite_InvalidPath(t *testing.T) {
	t.Parallel()
	repo, _ := newStoreMock(t)

	for _, p := range []string{"", "  ", "/", "status//water"} {
		if err := repo.Set(ctx(t), p, true); !errors.Is(err, ErrInvalidPath) {
			t.Fatalf("Set(%q): expected ErrInvalidPath, got %v", p, err)
		}
		var v bool
		if _, err := repo.Get(ctx(t), p, &v); !errors.Is(err, ErrInvalidPath) {
			t.Fatalf("Get(%q): expected ErrInvalidPath, got %v", p, err)
		}
	}
}

func TestStoreSQLite_Get_AssemblesChildren(t *testing.T) {
	t.Parallel()
	repo, mock := newStoreMock(t)

	rows := sqlmock.NewRows(treeColumns).
		AddRow("schedules/watering", `{"enabled":true,"times":["06:00"],"duration":5}`).
		AddRow("schedules/fertilizing", `{"enabled":false,"times":["18:00"],"duration":3}`)
	mock.ExpectQuery(treeQuery(1)).
		WithArgs("schedules", 10, "schedules/").
		WillReturnRows(rows)

	var set models.ScheduleSet
	ok, err := repo.Get(ctx(t), models.PathSchedules, &set)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected value to be found")
	}
	if set.Watering == nil || !set.Watering.Enabled || set.Watering.Times[0] != "06:00" || set.Watering.Duration != 5 {
		t.Fatalf("unexpected watering schedule: %+v", set.Watering)
	}
	if set.Fertilizing == nil || set.Fertilizing.Enabled || set.Fertilizing.Duration != 3 {
		t.Fatalf("unexpected fertilizing schedule: %+v", set.Fertilizing)
	}
}

func TestStoreSQLite_Get_ReadsThroughAncestor(t *testing.T) {
	t.Parallel()
	repo, mock := newStoreMock(t)

	rows := sqlmock.NewRows(treeColumns).
		AddRow("status/devices", `{"water":true,"cooler":false}`)
	mock.ExpectQuery(treeQuery(3)).
		WithArgs("status/devices/water", "status/devices", "status", 21, "status/devices/water/").
		WillReturnRows(rows)

	var on bool
	ok, err := repo.Get(ctx(t), models.DevicePath(models.DeviceWater), &on)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || !on {
		t.Fatalf("expected water=true, got ok=%v on=%v", ok, on)
	}
}

func TestStoreSQLite_Get_ChildRowOverridesAncestorDocument(t *testing.T) {
	t.Parallel()
	repo, mock := newStoreMock(t)

	rows := sqlmock.NewRows(treeColumns).
		AddRow("status", `{"devices":{"water":false,"fertilizer":true}}`).
		AddRow("status/devices/water", `true`)
	mock.ExpectQuery(treeQuery(2)).
		WithArgs("status/devices", "status", 15, "status/devices/").
		WillReturnRows(rows)

	var devices map[string]bool
	ok, err := repo.Get(ctx(t), models.PathDevices, &devices)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || !devices["water"] || !devices["fertilizer"] {
		t.Fatalf("unexpected devices: ok=%v %+v", ok, devices)
	}
}

func TestStoreSQLite_Get_Missing(t *testing.T) {
	t.Parallel()
	repo, mock := newStoreMock(t)

	mock.ExpectQuery(treeQuery(2)).
		WithArgs("sensor/data", "sensor", 12, "sensor/data/").
		WillReturnRows(sqlmock.NewRows(treeColumns))

	var snap models.SensorSnapshot
	ok, err := repo.Get(ctx(t), models.PathSensorData, &snap)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatalf("expected not found")
	}
}

func TestStoreSQLite_Get_CorruptValue(t *testing.T) {
	t.Parallel()
	repo, mock := newStoreMock(t)

	mock.ExpectQuery(treeQuery(2)).
		WillReturnRows(sqlmock.NewRows(treeColumns).AddRow("sensor/data", `{not json`))

	var snap models.SensorSnapshot
	if _, err := repo.Get(ctx(t), models.PathSensorData, &snap); err == nil {
		t.Fatalf("expected decode error, got nil")
	}
}
