package dto

import (
	"incident-map/domain/models"
	"incident-map/domain/services"
)

func ReportToReportResponse(r *models.Report) *ReportResponse {
	if r == nil {
		return nil
	}

	resp := &ReportResponse{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Address:     r.Address,
		Country:     r.Country,
		City:        r.City,
		Type:        string(r.Type),
		Longitude:   r.Location.Lon,
		Latitude:    r.Location.Lat,
		ClusterID:   r.ClusterID,
		UserID:      r.UserID,
		Images:      make([]ReportImageResponse, 0, len(r.Images)),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.User != nil {
		resp.User = &ReportOwnerResponse{
			ID:          r.User.ID,
			Username:    r.User.Username,
			Email:       r.User.Email,
			PhoneNumber: r.User.PhoneNumber,
		}
	}
	for i := range r.Images {
		resp.Images = append(resp.Images, *ReportImageToResponse(&r.Images[i]))
	}
	return resp
}

func ReportsToResponses(reports []models.Report) []ReportResponse {
	out := make([]ReportResponse, 0, len(reports))
	for i := range reports {
		out = append(out, *ReportToReportResponse(&reports[i]))
	}
	return out
}

func CreateReportResultToResponse(res *services.CreateReportResult) *CreateReportResponse {
	return &CreateReportResponse{
		Report:          ReportToReportResponse(res.Report),
		AlertRecipients: res.AlertRecipients,
		AlertDegraded:   res.AlertDegraded,
	}
}

func CreateReportRequestToService(req *CreateReportRequest) *services.CreateReportRequest {
	out := &services.CreateReportRequest{
		Name:        req.Name,
		Description: req.Description,
		Address:     req.Address,
		Country:     req.Country,
		City:        req.City,
		Type:        models.ReportType(req.Type),
	}
	if req.Longitude != nil {
		out.Longitude = *req.Longitude
	}
	if req.Latitude != nil {
		out.Latitude = *req.Latitude
	}
	return out
}

func UpdateReportRequestToService(req *UpdateReportRequest) *services.UpdateReportRequest {
	out := &services.UpdateReportRequest{
		Name:        req.Name,
		Description: req.Description,
		Address:     req.Address,
		Country:     req.Country,
		City:        req.City,
		Longitude:   req.Longitude,
		Latitude:    req.Latitude,
	}
	if req.Type != nil {
		t := models.ReportType(*req.Type)
		out.Type = &t
	}
	return out
}

func ReportImageToResponse(img *models.ReportImage) *ReportImageResponse {
	return &ReportImageResponse{
		ID:        img.ID,
		ReportID:  img.ReportID,
		Name:      img.Name,
		ImageURL:  img.ImageURL,
		HasFace:   img.HasFace,
		CreatedAt: img.CreatedAt,
	}
}

func ReportImagesToResponses(images []models.ReportImage) []ReportImageResponse {
	out := make([]ReportImageResponse, 0, len(images))
	for i := range images {
		out = append(out, *ReportImageToResponse(&images[i]))
	}
	return out
}

func UserToUserResponse(u *models.User) *UserResponse {
	if u == nil {
		return nil
	}
	resp := &UserResponse{
		ID:                u.ID,
		Email:             u.Email,
		Username:          u.Username,
		PhoneNumber:       u.PhoneNumber,
		LocationUpdatedAt: u.LocationUpdatedAt,
	}
	if u.CurrentLocation != nil {
		lon, lat := u.CurrentLocation.Lon, u.CurrentLocation.Lat
		resp.Longitude, resp.Latitude = &lon, &lat
	}
	return resp
}

func UsersToUserResponses(users []models.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, *UserToUserResponse(&users[i]))
	}
	return out
}
