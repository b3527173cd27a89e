package policy

import (
	log "github.com/sirupsen/logrus"
)

// init registers the built-in selection policies
func init() {
	if err := RegisterGlobal(LeastUtilized, LeastUtilizedSelector{}); err != nil {
		log.Warnf("Failed to register %s policy: %v", LeastUtilized, err)
	}

	if err := RegisterGlobal(LoadBalance, NewLoadBalanceSelector(DefaultLoadBalancePaths)); err != nil {
		log.Warnf("Failed to register %s policy: %v", LoadBalance, err)
	}

	if err := RegisterGlobal(Protected, ProtectedSelector{}); err != nil {
		log.Warnf("Failed to register %s policy: %v", Protected, err)
	}

	log.Debugf("Available path selection policies: %v", ListGlobal())
}
