package distributer

import (
	"log/slog"
	"os"
)

// seedEnvVar is the reference implementation's trigger for one-shot
// synthetic-data generation and bulk load of the source table. Both are
// out-of-scope collaborators here; this only recognizes the flag and
// explains why nothing happens.
const seedEnvVar = "CREATE_SQL"

// CheckSeedRequested logs whether CREATE_SQL=TRUE was set, for operators
// who expect the reference binary's seeding behavior. Seeding and bulk
// load are not implemented by this module: the source table is an
// external collaborator, populated before the distributer is started.
func CheckSeedRequested(logger *slog.Logger) {
	if os.Getenv(seedEnvVar) == "TRUE" {
		logger.Warn("CREATE_SQL=TRUE set but seeding is not implemented by this binary; populate the source table out of band before starting")
	}
}
