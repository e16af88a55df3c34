package monitoring

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/user/galnet-crawler/internal/domain"
)

// Metrics holds the crawler's Prometheus metrics.
type Metrics struct {
	PagesCrawled prometheus.Counter
	PagesFailed  prometheus.Counter
	Articles     prometheus.Counter
	Records      *prometheus.CounterVec
	Errors       *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PagesCrawled: factory.NewCounter(prometheus.CounterOpts{
			Name: "galnet_pages_crawled_total",
			Help: "The total number of index pages crawled.",
		}),
		PagesFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "galnet_pages_failed_total",
			Help: "The total number of index pages that ended a run with errors.",
		}),
		Articles: factory.NewCounter(prometheus.CounterOpts{
			Name: "galnet_articles_extracted_total",
			Help: "The total number of articles successfully extracted.",
		}),
		Records: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "galnet_records_total",
			Help: "Article record store outcomes.",
		}, []string{"result"}), // created, updated, unchanged
		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "galnet_errors_total",
			Help: "The total number of errors encountered, by kind.",
		}, []string{"kind"}), // scrape, parse, file
	}
}

// ObserveError counts err under its error kind.
func (m *Metrics) ObserveError(err error) {
	var (
		scrapeErr *domain.ScrapeError
		parseErr  *domain.ParseError
		fileErr   *domain.FileError
	)
	switch {
	case errors.As(err, &fileErr):
		m.Errors.WithLabelValues("file").Inc()
	case errors.As(err, &parseErr):
		m.Errors.WithLabelValues("parse").Inc()
	case errors.As(err, &scrapeErr):
		m.Errors.WithLabelValues("scrape").Inc()
	default:
		m.Errors.WithLabelValues("other").Inc()
	}
}

// ObserveRecord counts a record store outcome.
func (m *Metrics) ObserveRecord(result string) {
	m.Records.WithLabelValues(result).Inc()
}
