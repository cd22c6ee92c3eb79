package publisher

import (
	"os"
	"testing"

	"github.com/wfunc/gameengine/logger"
	"github.com/wfunc/gameengine/models"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

func TestComputeDiff(t *testing.T) {
	prev := models.NewRoomState("room1")
	prev.AddPlayer(models.NewPlayer("stays"), 100)
	prev.AddPlayer(models.NewPlayer("moves"), 100)
	prev.AddPlayer(models.NewPlayer("leaves"), 100)
	prev.AddBullet(&models.Bullet{BulletID: "kept", CreatedAt: 100}, 100)
	prev.AddBullet(&models.Bullet{BulletID: "gone", CreatedAt: 100}, 100)

	next := prev.Clone()
	next.Players["moves"].Position = models.Position{X: 10, Y: 20}
	next.RemovePlayer("leaves", 200)
	next.RemoveBullet("gone", 200)
	next.AddBullet(&models.Bullet{BulletID: "fresh", CreatedAt: 200}, 200)

	diff := ComputeDiff(prev, next)

	if len(diff.UpdatedPlayers) != 1 {
		t.Errorf("Expected 1 updated player, got %d", len(diff.UpdatedPlayers))
	}
	if _, ok := diff.UpdatedPlayers["moves"]; !ok {
		t.Error("Expected 'moves' in updated players")
	}
	if len(diff.RemovedPlayers) != 1 || diff.RemovedPlayers[0] != "leaves" {
		t.Errorf("Expected removed players [leaves], got %v", diff.RemovedPlayers)
	}
	if len(diff.NewBullets) != 1 || diff.NewBullets[0].BulletID != "fresh" {
		t.Errorf("Expected new bullets [fresh], got %v", diff.NewBullets)
	}
	if len(diff.RemovedBullets) != 1 || diff.RemovedBullets[0] != "gone" {
		t.Errorf("Expected removed bullets [gone], got %v", diff.RemovedBullets)
	}
	if diff.Version != next.Version {
		t.Errorf("Diff must carry the next version %d, got %d", next.Version, diff.Version)
	}
}

func TestComputeDiff_NoChanges(t *testing.T) {
	prev := models.NewRoomState("room1")
	prev.AddPlayer(models.NewPlayer("p1"), 100)

	diff := ComputeDiff(prev, prev.Clone())
	if !diff.IsEmpty() {
		t.Errorf("Diff of identical states must be empty, got %+v", diff)
	}
}

func TestBuildUpdate_FullByDefault(t *testing.T) {
	p := &Publisher{enableDiff: false}

	prev := models.NewRoomState("room1")
	next := prev.Clone()
	next.AddPlayer(models.NewPlayer("p1"), 100)

	update := p.buildUpdate("room1", prev, next)
	if !update.FullUpdate {
		t.Error("Expected a full update when diffs are disabled")
	}
	if update.State == nil || update.Diff != nil {
		t.Error("Full update must carry the snapshot and no diff")
	}
	if update.Timestamp != next.Timestamp {
		t.Errorf("Expected update timestamp %d, got %d", next.Timestamp, update.Timestamp)
	}
}

func TestBuildUpdate_DiffWhenEnabled(t *testing.T) {
	p := &Publisher{enableDiff: true}

	prev := models.NewRoomState("room1")
	next := prev.Clone()
	next.AddPlayer(models.NewPlayer("p1"), 100)

	update := p.buildUpdate("room1", prev, next)
	if update.FullUpdate {
		t.Error("Expected a diff update when diffs are enabled")
	}
	if update.Diff == nil || update.State != nil {
		t.Error("Diff update must carry the diff and no snapshot")
	}
	if _, ok := update.Diff.UpdatedPlayers["p1"]; !ok {
		t.Error("Diff should include the new player")
	}
}

func TestBuildUpdate_FreshRoomFallsBackToFull(t *testing.T) {
	p := &Publisher{enableDiff: true}

	next := models.NewRoomState("room1")
	next.AddPlayer(models.NewPlayer("p1"), 100)

	update := p.buildUpdate("room1", nil, next)
	if !update.FullUpdate {
		t.Error("A room with no prior state must publish a full snapshot")
	}
}
