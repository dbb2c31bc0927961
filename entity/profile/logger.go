package profile

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "profile")
