package rtmphandler

import (
	"github.com/sdnproj/p2p-controller/internal/brain"
	"github.com/sdnproj/p2p-controller/internal/config"
	"github.com/sirupsen/logrus"
)

// handlePublishRequest observes a broadcaster's publish request, which must
// travel to the RTMP port.
func handlePublishRequest(b *brain.SwitchBrain, cfg *config.Config, fr Frame, log *logrus.Entry) {
	if fr.DstTCPPort != cfg.RTMPPort {
		log.WithField("event", "publish_request").Warn("publish request observed in the wrong direction, ignoring")
		return
	}
	candidate := brain.Role{Port: fr.IngressPort, MAC: fr.SrcMAC, IP: fr.SrcIP, TCPPort: fr.SrcTCPPort}
	if err := b.ObserveBroadcasterPublish(candidate); err != nil {
		log.WithField("event", "publish_request").WithError(err).Error("broadcaster role conflict")
	}
}

// handlePublishStart observes the service's NetStream.Publish.Start reply,
// which must travel from the RTMP port.
func handlePublishStart(b *brain.SwitchBrain, cfg *config.Config, fr Frame, log *logrus.Entry) {
	if fr.SrcTCPPort != cfg.RTMPPort {
		log.WithField("event", "publish_start").Warn("publish-start observed in the wrong direction, ignoring")
		return
	}
	service := brain.Role{Port: fr.IngressPort, MAC: fr.SrcMAC, IP: fr.SrcIP, TCPPort: fr.SrcTCPPort}
	if err := b.ObserveBroadcasterPublishStarted(service); err != nil {
		log.WithField("event", "publish_start").WithError(err).Error("service role conflict")
	}
}

func handleStreamBegin(b *brain.SwitchBrain, log *logrus.Entry) {
	b.ObserveStreamBegin()
	log.WithField("event", "stream_begin").Debug("stream begin observed")
}
