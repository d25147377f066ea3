package api

import (
	"github.com/vytor/realorai/internal/auth"
	"github.com/vytor/realorai/internal/jobs"
	"github.com/vytor/realorai/internal/services"
)

type Server struct {
	Puzzles   services.PuzzleService
	Scheduler services.SchedulerService
	Sessions  services.SessionService
	Pipeline  services.PipelineService
	Jobs      jobs.JobQueue
	Auth      *auth.Authenticator
	Streams   *StreamRegistry
}
