package rtmphandler

import (
	"github.com/sdnproj/p2p-controller/internal/brain"
	"github.com/sdnproj/p2p-controller/internal/config"
	"github.com/sirupsen/logrus"
)

// handlePlayRequest observes a viewer's play request. Per §4.3 a request
// must travel to the RTMP port; a mismatch is logged and ignored rather
// than treated as fatal, since misdirected observations are expected on
// real-world traces.
func handlePlayRequest(b *brain.SwitchBrain, cfg *config.Config, fr Frame, log *logrus.Entry) {
	if fr.DstTCPPort != cfg.RTMPPort {
		log.WithField("event", "play_request").Warn("play request observed in the wrong direction, ignoring")
		return
	}
	candidate := brain.Role{Port: fr.IngressPort, MAC: fr.SrcMAC, IP: fr.SrcIP, TCPPort: fr.SrcTCPPort}
	if err := b.ObserveViewerPlay(candidate); err != nil {
		log.WithField("event", "play_request").WithError(err).Error("viewer role conflict")
	}
}

// handlePlayStart observes the service's NetStream.Play.Start reply, which
// must travel from the RTMP port.
func handlePlayStart(b *brain.SwitchBrain, cfg *config.Config, fr Frame, log *logrus.Entry) {
	if fr.SrcTCPPort != cfg.RTMPPort {
		log.WithField("event", "play_start").Warn("play-start observed in the wrong direction, ignoring")
		return
	}
	service := brain.Role{Port: fr.IngressPort, MAC: fr.SrcMAC, IP: fr.SrcIP, TCPPort: fr.SrcTCPPort}
	if err := b.ObserveViewerPlayStarted(service); err != nil {
		log.WithField("event", "play_start").WithError(err).Error("service role conflict")
	}
}
