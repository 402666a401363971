package worker

import (
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"ledger-core/internal/worker/tasks"
	"ledger-core/pkg/logger"
)

// Server 封装 Asynq Server (Worker)
type Server struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewServer deliver 为 nil 时通知只写日志
func NewServer(addr string, password string, db int, concurrency int, deliver tasks.DeliverFunc) *Server {
	if concurrency <= 0 {
		concurrency = 5
	}
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     addr,
			Password: password,
			DB:       db,
		},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			Logger: logger.NewAsynqLogger(),
		},
	)

	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeReviewNotify, tasks.NewReviewNotifyHandler(deliver))

	return &Server{server: srv, mux: mux}
}

// Start 非阻塞启动，信号处理交给 main
func (s *Server) Start() error {
	if err := s.server.Start(s.mux); err != nil {
		logger.Error("Worker Server failed", zap.Error(err))
		return err
	}
	logger.Info("Worker Server started")
	return nil
}

// Stop 停止拉取新任务并等待进行中的任务结束
func (s *Server) Stop() {
	s.server.Stop()
	s.server.Shutdown()
}
