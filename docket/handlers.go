/*
 * Copyright 2024 JusticeChain contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package docket

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
	"github.com/justicechain/justicechain/common"
	dbconf "github.com/kthomas/go-db-config"
	uuid "github.com/kthomas/go.uuid"
	provide "github.com/provideplatform/provide-go/common"
	"github.com/provideplatform/provide-go/common/util"
)

func resolveCasesQuery(db *gorm.DB, caseID, userID *uuid.UUID) *gorm.DB {
	query := db.Select("cases.*")
	if caseID != nil {
		query = query.Where("cases.id = ?", caseID)
	}
	if userID != nil {
		query = query.Where("cases.user_id = ?", userID)
	}
	return query
}

// InstallAPI registers the case record API handlers with gin
func InstallAPI(r *gin.Engine) {
	r.GET("/api/v1/cases", listCasesHandler)
	r.POST("/api/v1/cases", createCaseHandler)
	r.GET("/api/v1/cases/:id", caseDetailsHandler)
	r.PATCH("/api/v1/cases/:id/status", updateCaseStatusHandler)
	r.POST("/api/v1/cases/:id/evidence", submitEvidenceHandler)
}

// list/query filed cases
func listCasesHandler(c *gin.Context) {
	userID := util.AuthorizedSubjectID(c, "user")
	if userID == nil {
		provide.RenderError("unauthorized", 401, c)
		return
	}

	db := dbconf.DatabaseConnection()
	query := resolveCasesQuery(db, nil, userID)

	var cases []*Case
	provide.Paginate(c, query, &Case{}).Find(&cases)
	provide.Render(cases, 200, c)
}

// file a new case, optionally with initial plaintiff evidence
func createCaseHandler(c *gin.Context) {
	userID := util.AuthorizedSubjectID(c, "user")
	if userID == nil {
		provide.RenderError("unauthorized", 401, c)
		return
	}

	buf, err := c.GetRawData()
	if err != nil {
		provide.RenderError(err.Error(), 400, c)
		return
	}

	var params struct {
		Evidence []*Evidence `json:"evidence"`
	}
	err = json.Unmarshal(buf, &params)
	if err != nil {
		provide.RenderError(err.Error(), 422, c)
		return
	}

	kase := &Case{}
	err = json.Unmarshal(buf, kase)
	if err != nil {
		provide.RenderError(err.Error(), 422, c)
		return
	}
	kase.UserID = userID

	if !kase.Create() {
		obj := map[string]interface{}{}
		obj["errors"] = kase.Errors
		provide.Render(obj, 422, c)
		return
	}

	if len(params.Evidence) > 0 {
		db := dbconf.DatabaseConnection()
		counselType := CounselTypeHuman
		if kase.PlaintiffCounselType != nil {
			counselType = *kase.PlaintiffCounselType
		}
		err = kase.appendEvidence(db, counselType, kase.PlaintiffAddress, params.Evidence)
		if err != nil {
			common.Log.Warningf("failed to append initial evidence for case %s; %s", kase.ID, err.Error())
			provide.RenderError(err.Error(), 422, c)
			return
		}
		kase.enrich(db)
	}

	provide.Render(kase, 201, c)
}

// fetch full case details
func caseDetailsHandler(c *gin.Context) {
	userID := util.AuthorizedSubjectID(c, "user")
	if userID == nil {
		provide.RenderError("unauthorized", 401, c)
		return
	}

	db := dbconf.DatabaseConnection()
	caseID, err := uuid.FromString(c.Param("id"))
	if err != nil {
		provide.RenderError("bad request", 400, c)
		return
	}

	kase := &Case{}
	resolveCasesQuery(db, &caseID, nil).Find(&kase)
	if kase == nil || kase.ID == uuid.Nil {
		provide.RenderError("case not found", 404, c)
		return
	}

	kase.enrich(db)
	provide.Render(kase, 200, c)
}

// patch the case status
func updateCaseStatusHandler(c *gin.Context) {
	userID := util.AuthorizedSubjectID(c, "user")
	if userID == nil {
		provide.RenderError("unauthorized", 401, c)
		return
	}

	buf, err := c.GetRawData()
	if err != nil {
		provide.RenderError(err.Error(), 400, c)
		return
	}

	var params struct {
		Status *string `json:"status"`
	}
	err = json.Unmarshal(buf, &params)
	if err != nil {
		provide.RenderError(err.Error(), 422, c)
		return
	}

	if params.Status == nil {
		provide.RenderError("status required", 422, c)
		return
	}
	switch *params.Status {
	case CaseStatusOpen, CaseStatusClosed, CaseStatusPublished:
	default:
		provide.RenderError("invalid status", 422, c)
		return
	}

	db := dbconf.DatabaseConnection()
	caseID, err := uuid.FromString(c.Param("id"))
	if err != nil {
		provide.RenderError("bad request", 400, c)
		return
	}

	kase := &Case{}
	resolveCasesQuery(db, &caseID, nil).Find(&kase)
	if kase == nil || kase.ID == uuid.Nil {
		provide.RenderError("case not found", 404, c)
		return
	}

	err = kase.updateStatus(db, *params.Status)
	if err != nil {
		provide.RenderError(err.Error(), 500, c)
		return
	}

	kase.enrich(db)
	provide.Render(kase, 200, c)
}

// append evidence to a case
func submitEvidenceHandler(c *gin.Context) {
	userID := util.AuthorizedSubjectID(c, "user")
	if userID == nil {
		provide.RenderError("unauthorized", 401, c)
		return
	}

	buf, err := c.GetRawData()
	if err != nil {
		provide.RenderError(err.Error(), 400, c)
		return
	}

	var params struct {
		CounselType    *string     `json:"counsel_type"`
		CounselAddress *string     `json:"counsel_address"`
		Evidence       []*Evidence `json:"evidence"`
	}
	err = json.Unmarshal(buf, &params)
	if err != nil {
		provide.RenderError(err.Error(), 422, c)
		return
	}

	if params.CounselType == nil || (*params.CounselType != CounselTypeHuman && *params.CounselType != CounselTypeAI) {
		provide.RenderError("counsel type required", 422, c)
		return
	}
	if len(params.Evidence) == 0 {
		provide.RenderError("evidence required", 422, c)
		return
	}

	db := dbconf.DatabaseConnection()
	caseID, err := uuid.FromString(c.Param("id"))
	if err != nil {
		provide.RenderError("bad request", 400, c)
		return
	}

	kase := &Case{}
	resolveCasesQuery(db, &caseID, nil).Find(&kase)
	if kase == nil || kase.ID == uuid.Nil {
		provide.RenderError("case not found", 404, c)
		return
	}

	err = kase.appendEvidence(db, *params.CounselType, params.CounselAddress, params.Evidence)
	if err != nil {
		provide.RenderError(err.Error(), 403, c)
		return
	}

	kase.enrich(db)
	provide.Render(kase, 200, c)
}
